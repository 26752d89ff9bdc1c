package postgresengine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/keygen"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/postgresengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/testutil/fakedb"
)

func Test_Session_InsertAssignsGeneratedKey(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("RETURNING", []string{"id"}, []any{int64(42)})
	newUser := &user{Name: "Ada", Email: "ada@example.com"}

	// act
	rowsAffected, err := session.Insert(ctx, stmtInsertUser, newUser)

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(1), rowsAffected)
	assert.Equal(t, int64(42), newUser.ID)

	calls := db.CallsOfKind(fakedb.CallQuery)
	require.Len(t, calls, 1)
	assert.Equal(t, `INSERT INTO "users" ("name", "email") VALUES ($1, $2) RETURNING "id"`, calls[0].SQL)
	assert.Equal(t, []any{"Ada", "ada@example.com"}, calls[0].Args)
}

func Test_Session_InsertSliceBindsTypedArraysAndAssignsKeysInOrder(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	insertMany, err := sqlengine.NewMappedStatement(
		"users.insertMany", sqlengine.KindInsert,
		"INSERT INTO users (name, email) SELECT * FROM unnest(#{name}::text[], #{email}::text[])",
		sqlengine.WithKeyGenerator(keygen.NewDriverKeyGenerator(), "id"),
	)
	require.NoError(t, err)
	session := givenSession(t, givenConfiguration(t, db, postgresengine.WithMappedStatements(insertMany)), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("unnest", []string{"id"}, []any{int64(1)}, []any{int64(2)})
	newUsers := []user{
		{Name: "Ada", Email: "ada@example.com"},
		{Name: "Grace", Email: "grace@example.com"},
	}

	// act
	rowsAffected, err := session.Insert(ctx, "users.insertMany", newUsers)

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(2), rowsAffected)
	assert.Equal(t, int64(1), newUsers[0].ID)
	assert.Equal(t, int64(2), newUsers[1].ID)

	calls := db.CallsOfKind(fakedb.CallQuery)
	require.Len(t, calls, 1)
	assert.Equal(
		t,
		`INSERT INTO users (name, email) SELECT * FROM unnest($1::text[], $2::text[]) RETURNING "id"`,
		calls[0].SQL,
	)
	assert.Equal(
		t,
		[]any{[]string{"Ada", "Grace"}, []string{"ada@example.com", "grace@example.com"}},
		calls[0].Args,
	)
}

func Test_Session_InsertSliceBindsNilPropertiesAsNullElements(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	insertMany, err := sqlengine.NewMappedStatement(
		"users.insertMany", sqlengine.KindInsert,
		"INSERT INTO users (name, email) SELECT * FROM unnest(#{name}::text[], #{email}::text[])",
	)
	require.NoError(t, err)
	session := givenSession(t, givenConfiguration(t, db, postgresengine.WithMappedStatements(insertMany)), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubExec("unnest", 2)
	rows := []map[string]any{
		{"name": "Ada", "email": "ada@example.com"},
		{"name": "Grace", "email": nil},
	}

	// act
	_, err = session.Insert(ctx, "users.insertMany", rows)

	// assert
	require.NoError(t, err)

	calls := db.CallsOfKind(fakedb.CallExec)
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Args, 2)
	assert.Equal(t, []string{"Ada", "Grace"}, calls[0].Args[0])

	emails, ok := calls[0].Args[1].([]*string)
	require.True(t, ok, "expected []*string, got %T", calls[0].Args[1])
	require.Len(t, emails, 2)
	require.NotNil(t, emails[0])
	assert.Equal(t, "ada@example.com", *emails[0])
	assert.Nil(t, emails[1])
}

func Test_Session_SelectOneMapsStructResult(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("WHERE", userColumns, []any{int64(7), "Grace", "grace@example.com"})

	// act
	found, ok, err := postgresengine.SelectOneAs[user](ctx, session, stmtSelectUserByID, int64(7))

	// assert
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, user{ID: 7, Name: "Grace", Email: "grace@example.com"}, found)
	assert.Equal(t, []any{int64(7)}, db.CallsOfKind(fakedb.CallQuery)[0].Args)
	assert.Zero(t, db.OpenRows())
}

func Test_Session_SelectOneReturnsNilWithoutRow(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("WHERE", userColumns)

	// act
	result, err := session.SelectOne(ctx, stmtSelectUserByID, int64(1))
	_, found, typedErr := postgresengine.SelectOneAs[user](ctx, session, stmtSelectUserByID, int64(2))

	// assert
	require.NoError(t, err)
	require.NoError(t, typedErr)
	assert.Nil(t, result)
	assert.False(t, found)
}

func Test_Session_SelectOneFailsForMoreThanOneRow(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("WHERE", userColumns, givenUserRows(1, 2)...)

	// act
	_, err := session.SelectOne(ctx, stmtSelectUserByID, int64(1))

	// assert
	assert.ErrorIs(t, err, sqlengine.ErrTooManyResults)
}

func Test_Session_SelectListMapsResultTypes(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("ORDER BY \"id\"", userColumns, givenUserRows(1, 2)...)
	db.StubQuery("SELECT name", []string{"name"}, []any{[]byte("Ada")}, []any{[]byte("Grace")})
	db.StubQuery("WHERE email", []string{"id", "name"}, []any{int64(3), []byte("Linus")})

	// act
	users, usersErr := session.SelectList(ctx, stmtSelectUsers, nil)
	names, namesErr := session.SelectList(ctx, stmtSelectNames, nil)
	rows, rowsErr := session.SelectList(ctx, stmtSelectRows, map[string]any{"email": "linus@example.com"})

	// assert
	require.NoError(t, usersErr)
	require.NoError(t, namesErr)
	require.NoError(t, rowsErr)

	require.Len(t, users, 2)
	assert.Equal(t, &user{ID: 2, Name: "user", Email: "user@example.com"}, users[1])
	assert.Equal(t, []any{"Ada", "Grace"}, names)
	assert.Equal(t, []any{map[string]any{"id": int64(3), "name": "Linus"}}, rows)
}

func Test_Session_SelectListFailsForUnmappedColumn(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("ORDER BY", []string{"id", "nickname"}, []any{int64(1), "ada"})

	// act
	_, err := session.SelectList(ctx, stmtSelectUsers, nil)

	// assert
	assert.ErrorIs(t, err, sqlengine.ErrMappingResultFailed)
	assert.ErrorIs(t, err, postgresengine.ErrMissingDestination)
	assert.Zero(t, db.OpenRows())
}

func Test_Session_SelectListBoundedSkipsAndLimits(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("ORDER BY", userColumns, givenUserRows(1, 2, 3, 4, 5)...)

	// act
	results, err := session.SelectListBounded(ctx, stmtSelectUsers, nil, sqlengine.NewRowBounds(1, 2))

	// assert
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].(*user).ID)
	assert.Equal(t, int64(3), results[1].(*user).ID)
}

func Test_Session_SelectCursorIsLazyAndClosedWithSession(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)

	// arrange
	db.StubQuery("ORDER BY", userColumns, givenUserRows(1, 2, 3)...)

	// act
	cursor, err := session.SelectCursor(ctx, stmtSelectUsers, nil, sqlengine.NoRowBounds)
	require.NoError(t, err)

	require.True(t, cursor.Next())
	first := cursor.Value().(*user)
	openWhileReading := db.OpenRows()

	closeErr := session.Close(ctx)

	// assert
	require.NoError(t, closeErr)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, 0, cursor.CurrentIndex())
	assert.Equal(t, 1, openWhileReading)
	assert.False(t, cursor.IsOpen())
	assert.False(t, cursor.Next())
	assert.Zero(t, db.OpenRows())
}

func Test_Session_ClosedCursorsAreNotTrackedUntilSessionClose(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("ORDER BY", userColumns, givenUserRows(1, 2)...)

	// act
	for range 5 {
		cursor, err := session.SelectCursor(ctx, stmtSelectUsers, nil, sqlengine.NoRowBounds)
		require.NoError(t, err)
		_, err = sqlengine.CollectCursor(cursor)
		require.NoError(t, err)
	}

	open, err := session.SelectCursor(ctx, stmtSelectUsers, nil, sqlengine.NoRowBounds)
	require.NoError(t, err)
	trackedWithOneOpen := postgresengine.TrackedCursors(session)

	closeErr := session.Close(ctx)

	// assert
	require.NoError(t, closeErr)
	assert.Equal(t, 1, trackedWithOneOpen)
	assert.False(t, open.IsOpen())
	assert.Zero(t, db.OpenRows())
}

func Test_Session_CursorReportsConsumedAfterLastRow(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("ORDER BY", userColumns, givenUserRows(1, 2)...)

	cursor, err := session.SelectCursor(ctx, stmtSelectUsers, nil, sqlengine.NoRowBounds)
	require.NoError(t, err)

	// act
	results, collectErr := sqlengine.CollectCursor(cursor)

	// assert
	require.NoError(t, collectErr)
	assert.Len(t, results, 2)
	assert.False(t, cursor.IsOpen())
	assert.Zero(t, db.OpenRows())
}

func Test_Session_CommitAndRollbackFollowDirtyState(t *testing.T) {
	tests := []struct {
		name     string
		write    bool
		finish   func(ctx context.Context, s *postgresengine.Session) error
		expected []string
	}{
		{
			name:  "commit_after_write",
			write: true,
			finish: func(ctx context.Context, s *postgresengine.Session) error {
				return s.Commit(ctx, false)
			},
			expected: []string{"begin", `exec: UPDATE "users" SET "name"=$1 WHERE ("id" = $2)`, "commit"},
		},
		{
			name:  "rollback_after_write",
			write: true,
			finish: func(ctx context.Context, s *postgresengine.Session) error {
				return s.Rollback(ctx, false)
			},
			expected: []string{"begin", `exec: UPDATE "users" SET "name"=$1 WHERE ("id" = $2)`, "rollback"},
		},
		{
			name:  "close_after_write_rolls_back",
			write: true,
			finish: func(ctx context.Context, s *postgresengine.Session) error {
				return s.Close(ctx)
			},
			expected: []string{"begin", `exec: UPDATE "users" SET "name"=$1 WHERE ("id" = $2)`, "rollback"},
		},
		{
			name:  "commit_without_write_does_nothing",
			write: false,
			finish: func(ctx context.Context, s *postgresengine.Session) error {
				return s.Commit(ctx, false)
			},
			expected: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			ctx := context.Background()
			db := fakedb.New()
			session := givenSession(t, givenConfiguration(t, db), false)
			defer func() { _ = session.Close(ctx) }()

			// arrange
			if tc.write {
				_, err := session.Update(ctx, stmtUpdateUser, &user{ID: 1, Name: "Ada"})
				require.NoError(t, err)
				assert.True(t, session.IsDirty())
			}

			// act
			err := tc.finish(ctx, session)

			// assert
			require.NoError(t, err)
			assert.False(t, session.IsDirty())
			assert.Equal(t, tc.expected, db.Events())
			assert.Zero(t, db.OpenTransactions())
		})
	}
}

func Test_Session_ForcedCommitOnCleanSession(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), false)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	db.StubQuery("WHERE", userColumns, givenUserRows(1)...)
	_, err := session.SelectOne(ctx, stmtSelectUserByID, int64(1))
	require.NoError(t, err)

	// act
	commitErr := session.Commit(ctx, true)

	// assert
	require.NoError(t, commitErr)
	assert.Equal(t, "commit", db.Events()[len(db.Events())-1])
}

func Test_Session_UnknownStatementAndClosedSession(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)

	// act
	_, unknownErr := session.SelectList(ctx, "users.missing", nil)
	require.NoError(t, session.Close(ctx))
	secondCloseErr := session.Close(ctx)
	_, closedErr := session.Delete(ctx, stmtDeleteUser, int64(1))

	// assert
	assert.ErrorIs(t, unknownErr, sqlengine.ErrUnknownStatement)
	assert.NoError(t, secondCloseErr)
	assert.ErrorIs(t, closedErr, sqlengine.ErrExecutorClosed)
}

func Test_Session_WriteFailureIsExecutionError(t *testing.T) {
	// setup
	ctx := context.Background()
	db := fakedb.New()
	session := givenSession(t, givenConfiguration(t, db), true)
	defer func() { _ = session.Close(ctx) }()

	// arrange
	dbErr := errors.New("violates foreign key constraint")
	db.StubExecError("DELETE", dbErr)

	// act
	_, err := session.Delete(ctx, stmtDeleteUser, int64(1))

	// assert
	assert.ErrorIs(t, err, sqlengine.ErrExecutionFailed)
	assert.ErrorIs(t, err, dbErr)
}

func Test_Configuration_OpenSessionFailsWhenTransactionCannotStart(t *testing.T) {
	// arrange
	db := fakedb.New()
	dbErr := errors.New("too many connections")
	db.FailNewTransaction(dbErr)
	cfg := givenConfiguration(t, db)

	// act
	_, err := cfg.OpenSession(false)

	// assert
	assert.ErrorIs(t, err, sqlengine.ErrExecutionFailed)
	assert.ErrorIs(t, err, dbErr)
}

func Test_Configuration_RejectsDuplicateStatements(t *testing.T) {
	// arrange
	statements := givenMappedStatements(t)

	// act
	_, err := postgresengine.NewConfiguration(
		fakedb.New(),
		postgresengine.WithMappedStatements(statements...),
		postgresengine.WithMappedStatements(statements[0]),
	)

	// assert
	assert.ErrorIs(t, err, sqlengine.ErrDuplicateStatement)
}

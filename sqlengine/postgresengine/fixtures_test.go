package postgresengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/keygen"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/postgresengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/testutil/fakedb"
)

const (
	stmtInsertUser     = "users.insert"
	stmtSelectUserByID = "users.selectById"
	stmtSelectUsers    = "users.selectAll"
	stmtSelectNames    = "users.selectNames"
	stmtSelectRows     = "users.selectRows"
	stmtUpdateUser     = "users.update"
	stmtDeleteUser     = "users.delete"
)

var userColumns = []string{"id", "name", "email"}

type user struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
}

func givenMappedStatements(t *testing.T) []*sqlengine.MappedStatement {
	t.Helper()

	insertUser, err := postgresengine.InsertStatement(
		stmtInsertUser, "users", []string{"name", "email"},
		sqlengine.WithKeyGenerator(keygen.NewDriverKeyGenerator(), "id"),
	)
	require.NoError(t, err)

	selectByID, err := postgresengine.SelectStatement(
		stmtSelectUserByID, "users", userColumns, []string{"id"}, nil,
		sqlengine.WithResultTypeOf[user](),
	)
	require.NoError(t, err)

	selectAll, err := postgresengine.SelectStatement(
		stmtSelectUsers, "users", userColumns, nil, []string{"id"},
		sqlengine.WithResultTypeOf[*user](),
	)
	require.NoError(t, err)

	selectNames, err := sqlengine.NewMappedStatement(
		stmtSelectNames, sqlengine.KindSelect, "SELECT name FROM users ORDER BY name",
		sqlengine.WithResultTypeOf[string](),
	)
	require.NoError(t, err)

	selectRows, err := sqlengine.NewMappedStatement(
		stmtSelectRows, sqlengine.KindSelect, "SELECT id, name FROM users WHERE email = #{email}",
	)
	require.NoError(t, err)

	updateUser, err := postgresengine.UpdateStatement(stmtUpdateUser, "users", []string{"name"}, []string{"id"})
	require.NoError(t, err)

	deleteUser, err := postgresengine.DeleteStatement(stmtDeleteUser, "users", []string{"id"})
	require.NoError(t, err)

	return []*sqlengine.MappedStatement{insertUser, selectByID, selectAll, selectNames, selectRows, updateUser, deleteUser}
}

func givenConfiguration(t *testing.T, db *fakedb.DB, options ...postgresengine.Option) *postgresengine.Configuration {
	t.Helper()

	options = append([]postgresengine.Option{postgresengine.WithMappedStatements(givenMappedStatements(t)...)}, options...)

	cfg, err := postgresengine.NewConfiguration(db, options...)
	require.NoError(t, err)

	return cfg
}

func givenSession(t *testing.T, cfg *postgresengine.Configuration, autoCommit bool) *postgresengine.Session {
	t.Helper()

	session, err := cfg.OpenSession(autoCommit)
	require.NoError(t, err)

	return session
}

func givenUserRows(ids ...int64) [][]any {
	rows := make([][]any, len(ids))
	for i, id := range ids {
		rows[i] = []any{id, "user", "user@example.com"}
	}

	return rows
}

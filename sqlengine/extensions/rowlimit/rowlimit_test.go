package rowlimit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/extensions/rowlimit"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
)

// boundsRecorder is an executor that only answers reads and records their bounds.
type boundsRecorder struct {
	sqlengine.Executor
	bounds []sqlengine.RowBounds
}

func (r *boundsRecorder) Query(_ context.Context, _ *sqlengine.MappedStatement, _ any, bounds sqlengine.RowBounds) ([]any, error) {
	r.bounds = append(r.bounds, bounds)
	return []any{}, nil
}

func (r *boundsRecorder) QueryCursor(_ context.Context, _ *sqlengine.MappedStatement, _ any, bounds sqlengine.RowBounds) (sqlengine.Cursor, error) {
	r.bounds = append(r.bounds, bounds)
	return nil, nil
}

func givenLimitedExecutor(t *testing.T, extension *rowlimit.Extension) (sqlengine.Executor, *boundsRecorder) {
	t.Helper()

	recorder := &boundsRecorder{}
	wrapped, err := extension.Wrap(recorder)
	require.NoError(t, err)

	executor, ok := wrapped.(sqlengine.Executor)
	require.True(t, ok)

	return executor, recorder
}

func Test_RowLimit_CapsTheLimitAndKeepsTheOffset(t *testing.T) {
	// setup
	ctx := context.Background()
	executor, recorder := givenLimitedExecutor(t, rowlimit.New(10))

	// act
	_, err := executor.Query(ctx, nil, nil, sqlengine.NoRowBounds)
	require.NoError(t, err)
	_, err = executor.Query(ctx, nil, nil, sqlengine.NewRowBounds(20, 5))
	require.NoError(t, err)
	_, err = executor.QueryCursor(ctx, nil, nil, sqlengine.NewRowBounds(3, 50))
	require.NoError(t, err)

	// assert
	assert.Equal(t, []sqlengine.RowBounds{
		sqlengine.NewRowBounds(0, 10),
		sqlengine.NewRowBounds(20, 5),
		sqlengine.NewRowBounds(3, 10),
	}, recorder.bounds)
}

func Test_RowLimit_Properties(t *testing.T) {
	testCases := []struct {
		description     string
		properties      plugin.Properties
		expectedMaxRows int
		expectedErr     error
	}{
		{description: "default", properties: plugin.Properties{}, expectedMaxRows: rowlimit.DefaultMaxRows},
		{description: "configured", properties: plugin.Properties{"max_rows": "25"}, expectedMaxRows: 25},
		{description: "zero", properties: plugin.Properties{"max_rows": "0"}, expectedErr: plugin.ErrInvalidProperty},
		{description: "not a number", properties: plugin.Properties{"max_rows": "many"}, expectedErr: plugin.ErrInvalidProperty},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// setup
			extension, err := rowlimit.Factory(plugin.Dependencies{})
			require.NoError(t, err)

			// act
			err = extension.SetProperties(tc.properties)

			// assert
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedMaxRows, extension.(*rowlimit.Extension).MaxRows())
		})
	}
}

func Test_RowLimit_RegistersUnderItsName(t *testing.T) {
	// setup
	factories := plugin.NewFactories()

	// act
	err := rowlimit.Register(factories)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{rowlimit.Name}, factories.Names())
}

func Test_RowLimit_LeavesOtherRolesAlone(t *testing.T) {
	// setup
	var handler sqlengine.ParameterHandler = parameterHandler{}

	// act
	wrapped, err := rowlimit.New(1).Wrap(handler)

	// assert
	require.NoError(t, err)
	assert.Equal(t, handler, wrapped)
	assert.False(t, plugin.IsProxy(wrapped))
}

type parameterHandler struct{}

func (parameterHandler) SetParameters(*sqlengine.Statement) error { return nil }

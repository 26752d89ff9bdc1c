package postgresengine

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

const dialectPostgres = "postgres"

var ErrBuildingStatementFailed = errors.New("building statement failed")

// InsertStatement builds an INSERT of columns into table. Every column is bound from the parameter property of the same name.
func InsertStatement(
	id, table string,
	columns []string,
	options ...sqlengine.StatementOption,
) (*sqlengine.MappedStatement, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: statement %q has no columns", ErrBuildingStatementFailed, id)
	}

	cols := make([]any, len(columns))
	vals := make(goqu.Vals, len(columns))
	for i, column := range columns {
		cols[i] = column
		vals[i] = placeholder(column)
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(table).
		Cols(cols...).
		Vals(vals)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(ErrBuildingStatementFailed, toSQLErr)
	}

	return sqlengine.NewMappedStatement(id, sqlengine.KindInsert, sqlQuery, options...)
}

// SelectStatement builds a SELECT of columns from table, filtered by equality on whereColumns
// and ordered by orderColumns ascending.
func SelectStatement(
	id, table string,
	columns, whereColumns, orderColumns []string,
	options ...sqlengine.StatementOption,
) (*sqlengine.MappedStatement, error) {
	cols := make([]any, len(columns))
	for i, column := range columns {
		cols[i] = column
	}

	selectStmt := goqu.Dialect(dialectPostgres).
		From(table).
		Select(cols...)

	if len(whereColumns) > 0 {
		selectStmt = selectStmt.Where(equalities(whereColumns))
	}

	for _, column := range orderColumns {
		selectStmt = selectStmt.OrderAppend(goqu.I(column).Asc())
	}

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(ErrBuildingStatementFailed, toSQLErr)
	}

	return sqlengine.NewMappedStatement(id, sqlengine.KindSelect, sqlQuery, options...)
}

// UpdateStatement builds an UPDATE of setColumns in table, filtered by equality on whereColumns.
func UpdateStatement(
	id, table string,
	setColumns, whereColumns []string,
	options ...sqlengine.StatementOption,
) (*sqlengine.MappedStatement, error) {
	if len(setColumns) == 0 {
		return nil, fmt.Errorf("%w: statement %q has no columns", ErrBuildingStatementFailed, id)
	}

	record := goqu.Record{}
	for _, column := range setColumns {
		record[column] = placeholder(column)
	}

	updateStmt := goqu.Dialect(dialectPostgres).
		Update(table).
		Set(record)

	if len(whereColumns) > 0 {
		updateStmt = updateStmt.Where(equalities(whereColumns))
	}

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(ErrBuildingStatementFailed, toSQLErr)
	}

	return sqlengine.NewMappedStatement(id, sqlengine.KindUpdate, sqlQuery, options...)
}

// DeleteStatement builds a DELETE from table, filtered by equality on whereColumns.
func DeleteStatement(
	id, table string,
	whereColumns []string,
	options ...sqlengine.StatementOption,
) (*sqlengine.MappedStatement, error) {
	deleteStmt := goqu.Dialect(dialectPostgres).Delete(table)

	if len(whereColumns) > 0 {
		deleteStmt = deleteStmt.Where(equalities(whereColumns))
	}

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(ErrBuildingStatementFailed, toSQLErr)
	}

	return sqlengine.NewMappedStatement(id, sqlengine.KindDelete, sqlQuery, options...)
}

func equalities(columns []string) exp.Ex {
	ex := goqu.Ex{}
	for _, column := range columns {
		ex[column] = placeholder(column)
	}

	return ex
}

func placeholder(property string) exp.LiteralExpression {
	return goqu.L("#{" + property + "}")
}

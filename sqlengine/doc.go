// Package sqlengine provides the core abstractions of a SQL data-access engine
// whose execution pipeline can be observed and rewritten by extensions.
//
// The engine executes every statement through four role objects:
//   - Executor: runs write, read and batch statements, owns the local cache and the transaction
//   - StatementHandler: prepares a statement on a connection, binds it and executes it
//   - ParameterHandler: binds the caller's parameter object to the statement placeholders
//   - ResultSetHandler: maps an open result set to a list or a lazy Cursor
//
// Each role object is obtained from a configuration (see package postgresengine) and
// wrapped by the configured extension chain (see package plugin) before it is handed out.
//
// Write statements may carry a KeyGenerator. Its ProcessBefore hook fires before the
// physical execution, its ProcessAfter hook fires after it, exactly once per execution.
//
// Common usage pattern:
//
//	insertUser, err := sqlengine.NewMappedStatement(
//		"users.insert",
//		sqlengine.KindInsert,
//		"INSERT INTO users (name, email) VALUES (#{name}, #{email})",
//		sqlengine.WithKeyGenerator(keygen.NewDriverKeyGenerator(), "id"),
//	)
//	if err != nil {
//		// handle error
//	}
//
//	session, err := configuration.OpenSession(false)
//	if err != nil {
//		// handle error
//	}
//	defer session.Close(ctx)
//
//	user := &User{Name: "Jane", Email: "jane@example.com"}
//	_, err = session.Insert(ctx, "users.insert", user) // user.ID is populated afterwards
package sqlengine

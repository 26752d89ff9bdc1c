// Package postgresengine provides the PostgreSQL role objects of the sqlengine pipeline
// and the Configuration that creates them wrapped by the extension chain.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX) or any sqlengine.TransactionFactory
//   - Simple and batch executors with a per-executor local cache
//   - Generated keys via INSERT ... RETURNING or a separate key statement
//   - Extensions on all four roles, configured in code or from a YAML/JSON file
//   - A Session facade addressing mapped statements by id
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//
//	insertUser, _ := postgresengine.InsertStatement(
//		"users.insert", "users", []string{"name", "email"},
//		sqlengine.WithKeyGenerator(keygen.NewDriverKeyGenerator(), "id"),
//	)
//
//	configuration, _ := postgresengine.NewConfigurationFromPGXPool(
//		db,
//		postgresengine.WithMappedStatements(insertUser),
//		postgresengine.WithExtensions(sqllog.New(logger)),
//		postgresengine.WithLogger(logger),
//	)
//
//	session, _ := configuration.OpenSession(false)
//	defer session.Close(ctx)
//
//	_, err := session.Insert(ctx, "users.insert", &user)
//	err = session.Commit(ctx, false)
package postgresengine

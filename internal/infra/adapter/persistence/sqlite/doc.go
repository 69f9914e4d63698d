// Package sqlite provides SQLite implementations of repository interfaces,
// used for single-host deployments and tests. Open the database with
// db.OpenSQLite and apply db.MigrateUpSQLite before constructing repos.
package sqlite

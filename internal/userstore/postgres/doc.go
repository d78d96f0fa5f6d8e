// Package postgres implements contentauth.UserStore on PostgreSQL with pgx.
//
// The users table is owned by the embedded migrations in this package; see
// [NewMigrator]. Only lookups by username and password hash updates are used
// by the engine. Create exists for seeding and the CLI.
package postgres

// Package migrations embeds the SQL schema migrations for the trust
// broker's persistent store, one tree per backend, for use with
// golang-migrate's iofs source driver.
package migrations

import "embed"

//go:embed sqlite
var SQLite embed.FS

//go:embed postgres
var Postgres embed.FS

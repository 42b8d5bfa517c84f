// Package migrations embeds the entity store schema for each driver.
package migrations

import "embed"

// SQLiteFS contains the sqlite migrations.
//
//go:embed sqlite/*.sql
var SQLiteFS embed.FS

// PostgresFS contains the postgres migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// Package migrations embeds the EdgeTrack SQL migrations into the binary,
// so the daemon can migrate its database without the files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/edgetrack-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

// Source returns the embedded migrations for database.DB.Migrate.
func Source() database.Migrations {
	return database.Migrations{FS: migrationsFS, Dir: "."}
}

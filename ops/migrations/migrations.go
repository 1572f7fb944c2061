// Package migrations embeds the SQL schema and development seeds.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var files embed.FS

//go:embed seeds/*.sql
var seedFiles embed.FS

// Schema returns the schema migrations (*.up.sql / *.down.sql).
func Schema() fs.FS { return files }

// Seeds returns the development seed files.
func Seeds() fs.FS {
	sub, err := fs.Sub(seedFiles, "seeds")
	if err != nil {
		panic(err)
	}
	return sub
}

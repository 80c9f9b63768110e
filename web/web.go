// Package web holds the static chat page served at GET /.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// IndexFile is the page served at the site root.
const IndexFile = "index.html"

// Static returns the embedded static directory.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// the directory is embedded at build time
		panic(err)
	}
	return sub
}

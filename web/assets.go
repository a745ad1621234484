// Package web provides the embedded single-page application assets.
//
// The dist/ directory is embedded at build time; the real SPA build is
// copied in before compiling. During development a directory on disk
// (PUBLIC_DIR) can be served instead, allowing hot reloading of the web
// client without rebuilding the server.
package web

import (
	"embed"
	"io/fs"
	"os"
)

// IndexDocument is the SPA entry document served for client-side routes.
const IndexDocument = "index.html"

//go:embed all:dist
var assets embed.FS

// Assets returns the filesystem holding the SPA build. If overrideDir names
// an existing directory, that directory is served instead of the embedded
// build.
func Assets(overrideDir string) fs.FS {
	if overrideDir != "" {
		if stat, err := os.Stat(overrideDir); err == nil && stat.IsDir() {
			return os.DirFS(overrideDir)
		}
	}

	subFS, err := fs.Sub(assets, "dist")
	if err != nil {
		// Unreachable with a well-formed embed directive.
		panic("failed to access embedded web assets: " + err.Error())
	}
	return subFS
}

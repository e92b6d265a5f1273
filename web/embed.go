// Package web holds the dashboard templates and stylesheet compiled into the binary.
package web

import (
	"embed"
	"io/fs"
)

// Templates embeds layouts, partials and pages.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
var Templates embed.FS

//go:embed static/css/*
var static embed.FS

// StaticFS returns the assets rooted at static/ so they can be served under /static/.
func StaticFS() (fs.FS, error) {
	return fs.Sub(static, "static")
}

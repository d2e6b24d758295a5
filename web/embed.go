package web

import (
	"embed"
	"io/fs"
)

//go:embed static templates
var content embed.FS

// StaticFS returns the static file system.
func StaticFS() fs.FS {
	return mustSub("static")
}

// TemplatesFS returns the templates file system.
func TemplatesFS() fs.FS {
	return mustSub("templates")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(content, dir)
	if err != nil {
		// Only reachable if the embed directive above changes.
		panic("web: embedded directory " + dir + " missing: " + err.Error())
	}
	return sub
}

package webchat

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed assets/templates/*.html assets/static/*
var assetsFS embed.FS

var templates = template.Must(template.ParseFS(assetsFS, "assets/templates/*.html"))

func staticFS() fs.FS {
	sub, err := fs.Sub(assetsFS, "assets/static")
	if err != nil {
		panic(err)
	}
	return sub
}

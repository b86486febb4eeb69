package shell

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"swarmview/internal/mapsurface"
)

//go:embed web
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html.tmpl"))

func staticFS() fs.FS {
	sub, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	return sub
}

// pageConfig is handed to the viewer script as window.SWARMVIEW.
type pageConfig struct {
	Map     mapsurface.Options `json:"map"`
	Sources []string           `json:"sources"`
	Layers  []mapsurface.Layer `json:"layers"`
}

func (c *Console) servePage(w http.ResponseWriter, r *http.Request) {
	cfg := pageConfig{
		Map:     c.opts.Map,
		Sources: []string{mapsurface.SourceVehicles, mapsurface.SourceFence},
		Layers:  mapsurface.DefaultLayers(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, cfg); err != nil {
		c.logger.Error("render page", "error", err)
	}
}

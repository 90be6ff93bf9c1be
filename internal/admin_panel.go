package internal

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/greenfield-academy/website/pkg"

	log "github.com/sirupsen/logrus"
)

const adminPanelPrefix = "/admin"

// newAdminPanelHandler serves the built admin panel from dir. Paths without a
// matching file get index.html, the panel does its own client side routing.
func newAdminPanelHandler(dir string) http.Handler {
	if dir == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pkg.WriteResponseBytes(w, "text/html; charset=utf-8", []byte(adminPanelPlaceholder), http.StatusOK)
		})
	}

	fileServer := http.StripPrefix(adminPanelPrefix, http.FileServer(http.Dir(dir)))
	indexPath := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := path.Clean("/" + strings.TrimPrefix(r.URL.Path, adminPanelPrefix))
		if rel != "/" {
			isFile, err := pkg.PathExists(filepath.Join(dir, filepath.FromSlash(rel)), false)
			if err != nil {
				log.Errorf("admin panel, stat %s: %s", rel, err)
			}
			if isFile {
				fileServer.ServeHTTP(w, r)
				return
			}
		}
		http.ServeFile(w, r, indexPath)
	})
}

const adminPanelPlaceholder = `<!doctype html>
<html><head><title>Admin</title></head>
<body><div id="admin-root">Admin panel is not deployed.</div></body></html>
`

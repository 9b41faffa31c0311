package http

import (
	_ "embed"
	"net/http"
)

//go:embed web/index.html
var landingPage []byte

// Landing serves the embedded landing page at the root path.
func Landing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(landingPage)
}

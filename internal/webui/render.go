// Package webui serves the single-page conversation view. The page is
// rendered server-side from the live conversation and kept current in the
// browser over the events stream.
package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/verasca/lociq/internal/conversation"
)

//go:embed page.html
var pageFS embed.FS

var pageTmpl = template.Must(template.ParseFS(pageFS, "page.html"))

type pageData struct {
	Turns []conversation.Turn
}

// Handler renders the conversation page. Every turn carries a stable
// "turn-<id>" element id so navigation can target it by fragment.
func Handler(store *conversation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTmpl.Execute(w, pageData{Turns: store.All()}); err != nil {
			slog.Error("rendering page", "error", err)
		}
	}
}

// AnchorID returns the element id used for a turn on the rendered page.
func AnchorID(turnID string) string {
	return "turn-" + turnID
}

package ui

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"

	"datapipe/ai"
	"datapipe/internal/errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>LLM interaction logs</title></head>
<body>
<h1>LLM interaction logs</h1>
{{if .}}<ul>
{{range .}}<li><a href="{{.}}">{{.}}</a> (<a href="{{.}}/raw">json</a>)</li>
{{end}}</ul>{{else}}<p>No interactions logged yet.</p>{{end}}
</body>
</html>
`))

// LogViewer serves the model interaction logs of a run as HTML pages
type LogViewer struct {
	router *chi.Mux
	logs   *ai.InteractionLogger
}

// NewLogViewer creates a viewer over the logs written by logs
func NewLogViewer(logs *ai.InteractionLogger) *LogViewer {
	v := &LogViewer{
		router: chi.NewRouter(),
		logs:   logs,
	}
	v.router.Use(middleware.Recoverer)
	v.router.Use(middleware.Compress(5))

	v.router.Get("/", v.handleIndex)
	v.router.Get("/{name}", v.handleLog)
	v.router.Get("/{name}/raw", v.handleRaw)
	return v
}

func (v *LogViewer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v.router.ServeHTTP(w, r)
}

func (v *LogViewer) handleIndex(w http.ResponseWriter, r *http.Request) {
	names, err := v.logs.ListLogs()
	if err != nil {
		log.Printf("[LogViewer] Failed to list logs: %v", err)
		http.Error(w, "failed to list logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, names); err != nil {
		log.Printf("[LogViewer] Template error: %v", err)
	}
}

// handleLog renders the response of one log as HTML
func (v *LogViewer) handleLog(w http.ResponseWriter, r *http.Request) {
	entry, ok := v.readLog(w, chi.URLParam(r, "name"))
	if !ok {
		return
	}

	title := fmt.Sprintf("%s: %s (%s)", entry.AnalysisType, entry.Table, entry.Timestamp)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(ai.RenderHTML(title, entry.Response))
}

func (v *LogViewer) handleRaw(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := v.readLog(w, name); !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, filepath.Join(v.logs.Dir, name))
}

func (v *LogViewer) readLog(w http.ResponseWriter, name string) (*ai.InteractionLog, bool) {
	entry, err := v.logs.ReadLog(name)
	if err == nil {
		return entry, true
	}

	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[LogViewer] Failed to read %s: %v", name, err)
		http.Error(w, "failed to read log", status)
		return nil, false
	}
	http.Error(w, err.Error(), status)
	return nil, false
}

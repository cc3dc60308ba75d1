package ai

import (
	"encoding/json"
	"fmt"
	"html"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"datapipe/internal/errors"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/google/uuid"
)

const logTimestampLayout = "20060102_150405"

// InteractionLog is one prompt/response exchange as written to disk
type InteractionLog struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	AnalysisType string `json:"analysis_type"`
	Table        string `json:"table"`
	Prompt       string `json:"prompt"`
	Response     string `json:"response"`
}

// InteractionLogger writes every model exchange to Dir as JSON, plus an HTML
// rendering of the response for reading in a browser
type InteractionLogger struct {
	Dir string

	once    sync.Once
	initErr error
	now     func() time.Time
}

// NewInteractionLogger creates a logger writing into dir
func NewInteractionLogger(dir string) *InteractionLogger {
	return &InteractionLogger{Dir: dir, now: time.Now}
}

func (l *InteractionLogger) ensureDir() error {
	l.once.Do(func() {
		l.initErr = os.MkdirAll(l.Dir, 0o755)
	})
	return l.initErr
}

// LogInteraction writes one exchange and returns the JSON file name
// (relative to Dir). Names carry a short random suffix so concurrent files
// logging the same analysis type within one second do not collide.
func (l *InteractionLogger) LogInteraction(table, prompt, response, analysisType string) (string, error) {
	if err := l.ensureDir(); err != nil {
		return "", errors.Wrapf(err, "failed to create log directory %s", l.Dir)
	}

	now := l.now
	if now == nil {
		now = time.Now
	}

	id := uuid.New().String()
	entry := InteractionLog{
		ID:           id,
		Timestamp:    now().Format(logTimestampLayout),
		AnalysisType: analysisType,
		Table:        table,
		Prompt:       prompt,
		Response:     response,
	}

	stem := fmt.Sprintf("%s_%s_%s", analysisType, entry.Timestamp, id[:8])
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode interaction log")
	}
	if err := os.WriteFile(filepath.Join(l.Dir, stem+".json"), raw, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s.json", stem)
	}

	page := RenderHTML(fmt.Sprintf("%s: %s", analysisType, table), response)
	if err := os.WriteFile(filepath.Join(l.Dir, stem+".html"), page, 0o644); err != nil {
		// the JSON log is the record; the HTML view is a convenience
		log.Printf("[InteractionLogger] Warning: failed to write %s.html: %v", stem, err)
	}

	log.Printf("[InteractionLogger] Interaction logged to %s.json", stem)
	return stem + ".json", nil
}

// ReadLog reads back a log written by LogInteraction
func (l *InteractionLogger) ReadLog(filename string) (*InteractionLog, error) {
	if filepath.Base(filename) != filename || !strings.HasSuffix(filename, ".json") {
		return nil, errors.InvalidInput(fmt.Sprintf("invalid log name %q", filename))
	}

	raw, err := os.ReadFile(filepath.Join(l.Dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("log " + filename)
		}
		return nil, errors.Wrapf(err, "failed to read %s", filename)
	}

	var entry InteractionLog
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", filename)
	}
	return &entry, nil
}

// ListLogs returns the JSON log names in Dir, newest first. A missing
// directory means nothing has been logged yet.
func (l *InteractionLogger) ListLogs() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrapf(err, "failed to list %s", l.Dir)
	}

	type named struct {
		name string
		mod  time.Time
	}
	var logs []named
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		logs = append(logs, named{e.Name(), info.ModTime()})
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].mod.Equal(logs[j].mod) {
			return logs[i].mod.After(logs[j].mod)
		}
		return logs[i].name > logs[j].name
	})

	names := make([]string, len(logs))
	for i, n := range logs {
		names[i] = n.name
	}
	return names, nil
}

// RenderHTML renders a markdown model response as a standalone HTML page
func RenderHTML(title, md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(md))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	body := markdown.Render(doc, renderer)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(title))
	b.Write(body)
	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}

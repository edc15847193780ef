package commands

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"time"

	"homefit/internal/api"
	"homefit/internal/config"
	"homefit/internal/content"
	"homefit/internal/query"
	"homefit/internal/session"
	"homefit/internal/storage"
	"homefit/internal/workday"
)

var exportTmpl = template.Must(template.New("day").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Workout {{.DateKey}}</title></head>
<body>
<h1>Workout {{.DateKey}}</h1>
<p>Total: {{.Total}}</p>
<h2>Exercises</h2>
<ul>
{{- range .Exercises}}
<li>{{.Name}} &mdash; {{.Elapsed}}</li>
{{- end}}
</ul>
<h2>Diary</h2>
{{- range .Diaries}}
<article>{{.}}</article>
{{- end}}
</body>
</html>
`))

type exportExercise struct {
	Name    string
	Elapsed string
}

type exportData struct {
	DateKey   string
	Total     string
	Exercises []exportExercise
	Diaries   []template.HTML
}

// ExportDay writes the current workout day as a standalone HTML page:
// exercises with their totals plus diary entries rendered from markdown.
func ExportDay(ctx context.Context, path string, cfg *config.Config) error {
	store, err := storage.NewStore(cfg.CacheFile, cfg.CacheSecret)
	if err != nil {
		return fmt.Errorf("failed to open local cache: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	client := api.New(cfg.APIBaseURL, store)
	days := query.NewCache(ctx, client, cfg.CacheTTL)

	now := time.Now()
	dateKey := workday.Key(workday.Adjust(now, cfg.ResetHour))

	agg, err := days.Day(ctx, dateKey)
	if err != nil {
		return fmt.Errorf("failed to fetch day %s: %w", dateKey, err)
	}

	data := exportData{DateKey: dateKey}
	var total int64
	for _, ex := range agg.Exercises {
		ms := ex.ElapsedMs(now)
		total += ms
		data.Exercises = append(data.Exercises, exportExercise{
			Name:    ex.Name,
			Elapsed: session.FormatElapsed(ms),
		})
	}
	data.Total = session.FormatElapsed(total)

	for _, d := range agg.Diaries.Content {
		rendered, err := content.RenderDiary(d.Content)
		if err != nil {
			return fmt.Errorf("failed to render diary %d: %w", d.ID, err)
		}
		// Sanitized by RenderDiary; safe to emit as-is.
		data.Diaries = append(data.Diaries, template.HTML(rendered))
	}

	var buf bytes.Buffer
	if err := exportTmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render export: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	fmt.Printf("Wrote %s\n", path)
	return nil
}

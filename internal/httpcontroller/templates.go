package httpcontroller

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/logger"
	"github.com/tphakala/console-panel/internal/observability/metrics"
	"github.com/tphakala/console-panel/internal/sysinfo"
)

//go:embed views
var viewsFS embed.FS

// TemplateRenderer is a custom HTML template renderer for Echo framework.
type TemplateRenderer struct {
	templates *template.Template
	metrics   *metrics.HTTPMetrics
	log       logger.Logger
}

func newTemplateRenderer(m *metrics.HTTPMetrics, log logger.Logger) (*TemplateRenderer, error) {
	tmpl, err := template.New("").Funcs(templateFunctions()).ParseFS(viewsFS, "views/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &TemplateRenderer{templates: tmpl, metrics: m, log: log}, nil
}

// Render renders a template with the given data. Echo buffers the output,
// so a failing template never produces a half-written page.
func (t *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	start := time.Now()
	err := t.templates.ExecuteTemplate(w, name, data)
	if err != nil {
		t.log.Error("template execution failed", logger.String("template", name), logger.Error(err))
		if t.metrics != nil {
			t.metrics.RecordTemplateRenderError(name)
		}
		return err
	}
	if t.metrics != nil {
		t.metrics.RecordTemplateRender(name, time.Since(start).Seconds())
	}
	return nil
}

// templateFunctions returns a map of functions that can be used in templates
func templateFunctions() template.FuncMap {
	return template.FuncMap{
		"title":   cases.Title(language.English).String,
		"percent": entities.VolumeToPercent,
		"add":     func(a, b int) int { return a + b },
		"sub":     func(a, b int) int { return a - b },
		"bytes":   sysinfo.FormatBytes,
		"uptime":  sysinfo.FormatUptime,
		"when":    formatTime,
		"yesno":   yesNo,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

package renderer

import (
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damacus/iron-transfer/views"
)

// TemplateRenderer implements echo.Renderer
type TemplateRenderer struct {
	Templates map[string]*template.Template
}

// New creates a TemplateRenderer from the templates compiled into the binary
func New() *TemplateRenderer {
	return NewFromFS(views.FS)
}

// NewFromFS creates a TemplateRenderer with templates parsed from fsys
func NewFromFS(fsys fs.FS) *TemplateRenderer {
	r := &TemplateRenderer{
		Templates: make(map[string]*template.Template),
	}
	r.parseTemplates(fsys)
	return r
}

func (t *TemplateRenderer) parseTemplates(fsys fs.FS) {
	// Pages get the layout plus every partial they may embed
	parse := func(name, pageFile string) {
		t.Templates[name] = template.Must(template.ParseFS(fsys,
			"layouts/base.html",
			"partials/confirm_dialog.html",
			"partials/upload_conflict.html",
			"pages/"+pageFile,
		))
	}

	parse("browser", "browser.html")

	// Partials
	t.Templates["upload_conflict"] = template.Must(template.ParseFS(fsys, "partials/upload_conflict.html"))
}

// selfExecutingTemplates lists templates that execute their own named block instead of "base"
var selfExecutingTemplates = map[string]bool{
	"upload_conflict": true,
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.Templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}

	// Templates that define their own named block execute that block directly
	if selfExecutingTemplates[name] {
		return tmpl.ExecuteTemplate(w, name, data)
	}
	// All other templates (pages with layout) execute the "base" block
	return tmpl.ExecuteTemplate(w, "base", data)
}

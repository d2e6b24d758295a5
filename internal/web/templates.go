package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/auth"
	"github.com/erazemk/assetlend/internal/catalog"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/model"
	webembed "github.com/erazemk/assetlend/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleName": func(role string) string {
			switch role {
			case model.RoleAdministrator:
				return "Administrator"
			case model.RoleOperator:
				return "Operator"
			case model.RoleMember:
				return "Member"
			default:
				return role
			}
		},
		"join": strings.Join,
		"taxonomyLabel": func(tax model.Taxonomy) string {
			return taxonomyLabels[tax]
		},
		"fieldValue": fieldValue,
	}
}

var taxonomyLabels = map[model.Taxonomy]string{
	model.TaxonomyStructure: "Structure",
	model.TaxonomyType:      "Type",
	model.TaxonomyState:     "State",
	model.TaxonomyLevel:     "Level",
}

// fieldValue renders a projected custom field value as markup.
func fieldValue(f catalog.Field) template.HTML {
	switch v := f.Value.(type) {
	case catalog.FileRef:
		return template.HTML(fmt.Sprintf(`<a href="%s">%s</a>`,
			template.HTMLEscapeString(v.URL), template.HTMLEscapeString(v.Filename)))
	case []catalog.ItemRef:
		links := make([]string, 0, len(v))
		for _, ref := range v {
			links = append(links, fmt.Sprintf(`<a href="%s">%s</a>`,
				template.HTMLEscapeString(ref.Permalink), template.HTMLEscapeString(ref.Title)))
		}
		return template.HTML(strings.Join(links, ", "))
	case string:
		if f.Type == catalog.FieldTextarea {
			return template.HTML(catalog.Autop(template.HTMLEscapeString(v)))
		}
		return template.HTML(template.HTMLEscapeString(v))
	default:
		return template.HTML(template.HTMLEscapeString(fmt.Sprint(v)))
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"items.html",
		"item_detail.html",
		"tools.html",
		"users.html",
		"settings.html",
		"account.html",
		"error.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data and a 200 status.
func (ts *Templates) Render(w http.ResponseWriter, r *http.Request, name string, data any) {
	ts.RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		logger.FromContext(r.Context()).Error("rendering template", zap.String("template", name), zap.Error(err))
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title        string
	User         *auth.Claims
	Capabilities map[model.Capability]bool
	Error        string
	Success      string
}

// Can reports whether the current visitor holds capability c.
func (p *PageData) Can(c string) bool {
	return p.Capabilities[model.Capability(c)]
}

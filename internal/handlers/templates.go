package handlers

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/snappy-loop/gallery/internal/models"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// pageTemplates is the parsed set of all page templates (index, story_card).
var pageTemplates = mustParseTemplates()

var templateFuncs = template.FuncMap{
	"moodClass": func(m models.Mood) string { return "mood-" + strings.ToLower(string(m)) },
}

func mustParseTemplates() *template.Template {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		panic("parse templates: " + err.Error())
	}
	return t
}

// executeTemplate executes the named template with data into w.
func executeTemplate(w io.Writer, name string, data interface{}) error {
	return pageTemplates.ExecuteTemplate(w, name, data)
}

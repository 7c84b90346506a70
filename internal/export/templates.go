package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var noteTemplate = template.Must(template.New("note").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(noteTemplateHTML))

// TemplateData holds data for note template rendering
type TemplateData struct {
	Title       string
	ContentHTML template.HTML
	Author      string
	Tags        []string
	FolderName  string
	UpdatedAt   time.Time
}

// RenderNoteHTML renders the note template with provided data
func RenderNoteHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := noteTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const noteTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .tag { background: #eef; border-radius: 3px; padding: 0.1rem 0.4rem; margin-right: 0.3rem; font-size: 0.85em; }
    pre { background: #f5f5f5; padding: 1rem; overflow-x: auto; }
    blockquote { border-left: 3px solid #333; margin-left: 0; padding-left: 1rem; color: #444; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">
    {{if .FolderName}}{{.FolderName}} | {{end}}{{.Author}} | {{formatDate .UpdatedAt "Jan 2, 2006"}}
    {{if .Tags}}<div>{{range .Tags}}<span class="tag">{{.}}</span>{{end}}</div>{{end}}
  </div>
  <div>{{.ContentHTML}}</div>
</body>
</html>`

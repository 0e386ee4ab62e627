package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

type cancellationEmailData struct {
	baseEmailData
	ClientName    string
	FollowUpTitle string
	ScheduledDate string
	Reason        string
}

type outcomeSummaryEmailData struct {
	baseEmailData
	ClientName    string
	FollowUpTitle string
	Outcome       string
	ActionItems   []string
}

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func renderEmailTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}

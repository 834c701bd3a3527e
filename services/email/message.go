package emailsvc

import (
	"bytes"
	"context"
	"embed"
	htmltmpl "html/template"
	"net/mail"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

//go:embed templates
var templateFS embed.FS

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Subject string

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// Sender is any service that can deliver an email.
	Sender interface {
		Send(ctx context.Context, msg EmailMessage) error
	}
)

// Render fills TextContent and HTMLContent from the `templates/<name>.txt|.gohtml` pair.
func (m *EmailMessage) Render() error {
	if m.TemplateName == "" {
		return nil
	}

	txt, err := texttmpl.New("").Option("missingkey=error").
		ParseFS(templateFS, "templates/layout.txt", "templates/"+m.TemplateName+".txt")
	if err != nil {
		return errors.Wrap(err, "parsing text template")
	}
	var buf bytes.Buffer
	if err := txt.ExecuteTemplate(&buf, "base", m.TemplateData); err != nil {
		return errors.Wrap(err, "rendering text template")
	}
	m.TextContent = buf.String()

	html, err := htmltmpl.New("").Option("missingkey=error").
		ParseFS(templateFS, "templates/layout.gohtml", "templates/"+m.TemplateName+".gohtml")
	if err != nil {
		return errors.Wrap(err, "parsing html template")
	}
	buf.Reset()
	if err := html.ExecuteTemplate(&buf, "base", m.TemplateData); err != nil {
		return errors.Wrap(err, "rendering html template")
	}
	m.HTMLContent = buf.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/odyssey-backoffice/web"
)

// Engine renders HTML document templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title string
	Data  any
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount with thousands separators and two decimals.
func FormatMoney(d decimal.Decimal) string {
	return moneyPrinter.Sprintf("%.2f", d.InexactFloat64())
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"money": FormatMoney,
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/documents/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template into w.
func (e *Engine) Render(w io.Writer, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, name, data)
}

// RenderString executes a named template and returns the document.
func (e *Engine) RenderString(name string, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := e.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

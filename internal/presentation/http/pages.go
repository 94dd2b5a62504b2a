package httppresentation

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed pages/*.html
var pagesFS embed.FS

const (
	pageIndex          = "index.html"
	pageQuery          = "query.html"
	pageInquirySuccess = "inquiry_success.html"
	pageInquiryFailure = "inquiry_failure.html"
)

type pageData struct {
	SiteName string
}

type pages struct {
	tmpl *template.Template
}

func mustLoadPages() *pages {
	return &pages{tmpl: template.Must(template.ParseFS(pagesFS, "pages/*.html"))}
}

// render executes the page into a buffer first so a template error never leaves a half written response.
func (p *pages) render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

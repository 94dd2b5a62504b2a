// Package mailtemplate renders the inquiry emails from embedded html/template files.
// Every lead field is contextually escaped by html/template.
package mailtemplate

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	appinquiry "github.com/teamcircuitbreakers/promosite/internal/application/inquiry"
	domain "github.com/teamcircuitbreakers/promosite/internal/domain/inquiry"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	adminTemplate    = "admin_notification.html"
	customerTemplate = "customer_confirmation.html"
)

type Renderer struct {
	tmpl     *template.Template
	siteName string
}

var _ appinquiry.Renderer = (*Renderer)(nil)

// view is the flattened record handed to both templates.
type view struct {
	SiteName        string
	FullName        string
	FirstName       string
	Phone           string
	Address         string
	Email           string
	InterestSection string
	Timestamp       string
}

func New(siteName string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("mailtemplate: parse: %w", err)
	}
	return &Renderer{tmpl: tmpl, siteName: siteName}, nil
}

func MustNew(siteName string) *Renderer {
	r, err := New(siteName)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) RenderAdminNotification(lead domain.Lead) (string, error) {
	return r.render(adminTemplate, lead)
}

func (r *Renderer) RenderCustomerConfirmation(lead domain.Lead) (string, error) {
	return r.render(customerTemplate, lead)
}

func (r *Renderer) render(name string, lead domain.Lead) (string, error) {
	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, name, view{
		SiteName:        r.siteName,
		FullName:        lead.FullName,
		FirstName:       lead.FirstName(),
		Phone:           lead.Phone,
		Address:         lead.Address,
		Email:           lead.Email,
		InterestSection: lead.InterestSection,
		Timestamp:       lead.Timestamp(),
	})
	if err != nil {
		return "", fmt.Errorf("mailtemplate: render %s: %w", name, err)
	}
	return buf.String(), nil
}

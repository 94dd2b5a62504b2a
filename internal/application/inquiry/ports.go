package inquiry

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=inquiry

import (
	"context"

	domain "github.com/teamcircuitbreakers/promosite/internal/domain/inquiry"
)

// Mailer delivers one message over its own authenticated session.
type Mailer interface {
	Send(ctx context.Context, msg domain.EmailMessage) error
}

// Renderer produces the HTML bodies of the two inquiry emails.
// Implementations own the escaping of every user supplied field.
type Renderer interface {
	RenderAdminNotification(lead domain.Lead) (string, error)
	RenderCustomerConfirmation(lead domain.Lead) (string, error)
}

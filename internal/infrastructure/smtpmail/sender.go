// Package smtpmail sends HTML email over an authenticated SMTP session.
package smtpmail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	appinquiry "github.com/teamcircuitbreakers/promosite/internal/application/inquiry"
	domain "github.com/teamcircuitbreakers/promosite/internal/domain/inquiry"
	"gopkg.in/gomail.v2"
)

// Account is one mailbox and the credentials that authenticate it.
type Account struct {
	Host     string
	Port     int
	Username string
	Password string
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender opens a fresh session per message. Port 465 uses implicit TLS,
// any other port is upgraded with STARTTLS.
type Sender struct {
	account Account
	dialer  dialer
}

var _ appinquiry.Mailer = (*Sender)(nil)

func NewSender(account Account) *Sender {
	d := gomail.NewDialer(account.Host, account.Port, account.Username, account.Password)
	d.TLSConfig = &tls.Config{ServerName: account.Host, MinVersion: tls.VersionTLS12}
	return &Sender{account: account, dialer: d}
}

// Send delivers msg and blocks until the server accepts or rejects it.
func (s *Sender) Send(ctx context.Context, msg domain.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := buildMessage(msg)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp: send to %s via %s: %w", msg.To, s.account.Host, err)
	}
	return nil
}

func buildMessage(msg domain.EmailMessage) (*gomail.Message, error) {
	if msg.From == "" {
		return nil, errors.New("smtp: sender address is empty")
	}
	if msg.To == "" {
		return nil, errors.New("smtp: recipient address is empty")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.From, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)
	return m, nil
}

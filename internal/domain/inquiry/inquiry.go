package inquiry

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// DefaultInterest is used when the form leaves the interest section blank.
const DefaultInterest = "General Inquiry"

// TimestampLayout renders submission times in the form shown in both emails.
const TimestampLayout = "02 Jan 2006, 03:04 PM IST"

// IST is India Standard Time. A fixed zone keeps rendering independent of the host tzdata.
var IST = time.FixedZone("IST", 5*60*60+30*60)

var ErrInvalidForm = errors.New("inquiry: invalid form")

// Form is the raw contact form as submitted.
type Form struct {
	FullName        string
	Phone           string
	Address         string
	Email           string
	InterestSection string
}

// Lead is a validated form together with its submission time.
type Lead struct {
	FullName        string
	Phone           string
	Address         string
	Email           string
	InterestSection string
	SubmittedAt     time.Time
}

// EmailMessage is one fully rendered outbound email.
type EmailMessage struct {
	From     string
	FromName string
	To       string
	Subject  string
	HTMLBody string
}

// NewLead validates the form and keeps every field as submitted. Blank checks
// ignore surrounding whitespace, and a blank interest becomes DefaultInterest.
func NewLead(f Form, now time.Time) (Lead, error) {
	lead := Lead{
		FullName:        f.FullName,
		Phone:           f.Phone,
		Address:         f.Address,
		Email:           f.Email,
		InterestSection: f.InterestSection,
		SubmittedAt:     now.In(IST),
	}
	if strings.TrimSpace(lead.InterestSection) == "" {
		lead.InterestSection = DefaultInterest
	}

	if strings.TrimSpace(lead.FullName) == "" {
		return Lead{}, fmt.Errorf("%w: full name is required", ErrInvalidForm)
	}
	email := lead.Recipient()
	if email == "" {
		return Lead{}, fmt.Errorf("%w: email is required", ErrInvalidForm)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return Lead{}, fmt.Errorf("%w: email address is not valid", ErrInvalidForm)
	}
	return lead, nil
}

// Recipient is the submitted email without surrounding whitespace, for delivery.
func (l Lead) Recipient() string {
	return strings.TrimSpace(l.Email)
}

// FirstName returns the first whitespace separated token of the name,
// or the whole trimmed name when it has a single token.
func (l Lead) FirstName() string {
	return FirstName(l.FullName)
}

// Timestamp formats the submission time in IST.
func (l Lead) Timestamp() string {
	return l.SubmittedAt.In(IST).Format(TimestampLayout)
}

func FirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return strings.TrimSpace(fullName)
	}
	return fields[0]
}

package inquiry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teamcircuitbreakers/promosite/internal/application"
	domain "github.com/teamcircuitbreakers/promosite/internal/domain/inquiry"
	"github.com/teamcircuitbreakers/promosite/internal/observability"
	"github.com/teamcircuitbreakers/promosite/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	inquiryService        = "inquiry-service"
	useCaseInquirySubmit  = "inquiry.submit"
	spanPrefix            = "UC."
	endpointAdminEmail    = "admin_notification"
	endpointCustomerEmail = "customer_confirmation"
)

// Delivery stages reported by DeliveryError.
const (
	StageRenderAdmin    = "render_admin"
	StageSendAdmin      = "send_admin"
	StageRenderCustomer = "render_customer"
	StageSendCustomer   = "send_customer"
)

// DeliveryError reports which step of the dual send failed. Earlier sends are not undone.
type DeliveryError struct {
	Stage string
	Err   error
}

func (e *DeliveryError) Error() string { return fmt.Sprintf("inquiry: %s: %v", e.Stage, e.Err) }
func (e *DeliveryError) Unwrap() error { return e.Err }

// Identity is a sender mailbox shown in the From header.
type Identity struct {
	Address string
	Name    string
}

// Settings fixes the addressing of both emails for the process lifetime.
type Settings struct {
	AdminFrom      Identity
	CustomerFrom   Identity
	AdminRecipient string
	SiteName       string
}

type SubmitInquiryInput struct {
	Form domain.Form
}

type SubmitInquiryResult struct {
	FirstName   string
	Email       string
	SubmittedAt string
}

var _ application.UseCase[SubmitInquiryInput, *SubmitInquiryResult] = (*SubmitInquiryUseCase)(nil)

// SubmitInquiryUseCase turns a contact form into a lead notification and a customer confirmation.
type SubmitInquiryUseCase struct {
	adminMailer    Mailer
	customerMailer Mailer
	renderer       Renderer
	settings       Settings
	now            func() time.Time
	tracer         observability.Tracer

	log             observability.Logger
	reqCounter      observability.Counter
	durHistogram    observability.Histogram
	extCounter      observability.Counter
	adminLatency    observability.BoundHistogram
	customerLatency observability.BoundHistogram
}

type Option func(*SubmitInquiryUseCase)

// WithClock overrides the submission clock.
func WithClock(now func() time.Time) Option {
	return func(uc *SubmitInquiryUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

func NewSubmitInquiryUseCase(
	adminMailer, customerMailer Mailer,
	renderer Renderer,
	settings Settings,
	tel observability.Observability,
	opts ...Option,
) *SubmitInquiryUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metricsProvider := tel.Metrics()
	extHistogram := metricsProvider.Histogram(observability.MExternalRequestDuration)
	adminLatency := extHistogram.Bind(
		observability.L("peer", observability.PeerSMTP),
		observability.L("endpoint", endpointAdminEmail),
	)
	customerLatency := extHistogram.Bind(
		observability.L("peer", observability.PeerSMTP),
		observability.L("endpoint", endpointCustomerEmail),
	)

	uc := &SubmitInquiryUseCase{
		adminMailer:     adminMailer,
		customerMailer:  customerMailer,
		renderer:        renderer,
		settings:        settings,
		now:             time.Now,
		tracer:          tel.Tracer(),
		log:             tel.Logger().With(observability.F("service", inquiryService)),
		reqCounter:      metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram:    metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:      metricsProvider.Counter(observability.MExternalRequests),
		adminLatency:    adminLatency,
		customerLatency: customerLatency,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute validates the form, then renders and sends the admin email followed by the
// customer email. Any failure fails the whole submission.
func (uc *SubmitInquiryUseCase) Execute(ctx context.Context, cmd SubmitInquiryInput) (_ *SubmitInquiryResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseInquirySubmit))

	ctx, span := uc.tracer.Start(ctx, spanPrefix+"SubmitInquiry",
		attribute.String("use_case", useCaseInquirySubmit),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	sent := 0

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			span.SetAttributes(attribute.Int("inquiry.emails_sent", sent))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseInquirySubmit),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseInquirySubmit),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("emails_sent", sent),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
			logger.Error("use_case_done", fields...)
			return
		}
		logger.Info("use_case_done", fields...)
	}()

	lead, err := domain.NewLead(cmd.Form, uc.now())
	if err != nil {
		outcome, statusText = "rejected", "FORM_INVALID"
		return nil, err
	}
	span.SetAttributes(attribute.String("inquiry.interest", lead.InterestSection))

	adminBody, err := uc.renderer.RenderAdminNotification(lead)
	if err != nil {
		outcome, statusText = "error", "RENDER_ADMIN_FAILED"
		return nil, &DeliveryError{Stage: StageRenderAdmin, Err: err}
	}
	adminMsg := domain.EmailMessage{
		From:     uc.settings.AdminFrom.Address,
		FromName: uc.settings.AdminFrom.Name,
		To:       uc.settings.AdminRecipient,
		Subject:  fmt.Sprintf("New Lead: %s - %s", lead.InterestSection, lead.FullName),
		HTMLBody: adminBody,
	}
	if err := uc.send(ctx, uc.adminMailer, endpointAdminEmail, uc.adminLatency, adminMsg); err != nil {
		outcome, statusText = "error", "SEND_ADMIN_FAILED"
		return nil, &DeliveryError{Stage: StageSendAdmin, Err: err}
	}
	sent++

	customerBody, err := uc.renderer.RenderCustomerConfirmation(lead)
	if err != nil {
		outcome, statusText = "error", "RENDER_CUSTOMER_FAILED"
		return nil, &DeliveryError{Stage: StageRenderCustomer, Err: err}
	}
	customerMsg := domain.EmailMessage{
		From:     uc.settings.CustomerFrom.Address,
		FromName: uc.settings.CustomerFrom.Name,
		To:       lead.Recipient(),
		Subject:  fmt.Sprintf("Thank you for your interest in %s", uc.siteName()),
		HTMLBody: customerBody,
	}
	if err := uc.send(ctx, uc.customerMailer, endpointCustomerEmail, uc.customerLatency, customerMsg); err != nil {
		outcome, statusText = "error", "SEND_CUSTOMER_FAILED"
		return nil, &DeliveryError{Stage: StageSendCustomer, Err: err}
	}
	sent++

	return &SubmitInquiryResult{
		FirstName:   lead.FirstName(),
		Email:       lead.Recipient(),
		SubmittedAt: lead.Timestamp(),
	}, nil
}

func (uc *SubmitInquiryUseCase) send(
	ctx context.Context,
	m Mailer,
	endpoint string,
	latency observability.BoundHistogram,
	msg domain.EmailMessage,
) error {
	callStart := time.Now()
	callOutcome := "success"

	var err error
	if m == nil {
		err = errors.New("mailer not configured")
	} else {
		err = m.Send(ctx, msg)
	}
	if err != nil {
		callOutcome = "error"
	}

	uc.extCounter.Add(1,
		observability.L("peer", observability.PeerSMTP),
		observability.L("endpoint", endpoint),
		observability.L("outcome", callOutcome),
	)
	latency.Observe(time.Since(callStart).Seconds())
	return err
}

func (uc *SubmitInquiryUseCase) siteName() string {
	if uc.settings.SiteName == "" {
		return "us"
	}
	return uc.settings.SiteName
}

package order

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/teamcircuitbreakers/promosite/internal/application"
	domain "github.com/teamcircuitbreakers/promosite/internal/domain/order"
	"github.com/teamcircuitbreakers/promosite/internal/observability"
	"github.com/teamcircuitbreakers/promosite/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
	spanPrefix         = "UC."
	gatewayEndpoint    = "orders.create"
)

// ErrNotConfigured is returned when the service started without gateway credentials.
var ErrNotConfigured = errors.New("order: payment gateway not configured")

// GatewayError carries a failure raised by the payment gateway. Its message is the upstream text.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string { return e.Err.Error() }
func (e *GatewayError) Unwrap() error { return e.Err }

var _ application.UseCase[CreateOrderInput, *CreateOrderResult] = (*CreateOrderUseCase)(nil)

// CreateOrderUseCase validates a checkout amount and opens an order at the payment gateway.
type CreateOrderUseCase struct {
	// gateway is nil when credentials were absent at startup.
	gateway Gateway
	tracer  observability.Tracer

	log            observability.Logger
	reqCounter     observability.Counter        // usecase_requests_total{use_case,outcome}
	durHistogram   observability.Histogram      // usecase_duration_seconds{use_case}
	extCounter     observability.Counter        // external_requests_total{peer,endpoint,outcome}
	gatewayLatency observability.BoundHistogram // external_request_duration_seconds{peer="razorpay",endpoint}
}

// NewCreateOrderUseCase wires the use case. A nil gateway is allowed and makes every
// execution fail with ErrNotConfigured.
func NewCreateOrderUseCase(gateway Gateway, tel observability.Observability) *CreateOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metricsProvider := tel.Metrics()
	gatewayLatency := metricsProvider.Histogram(observability.MExternalRequestDuration).Bind(
		observability.L("peer", observability.PeerPaymentGateway),
		observability.L("endpoint", gatewayEndpoint),
	)

	return &CreateOrderUseCase{
		gateway:        gateway,
		tracer:         tel.Tracer(),
		log:            tel.Logger().With(observability.F("service", orderService)),
		reqCounter:     metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram:   metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:     metricsProvider.Counter(observability.MExternalRequests),
		gatewayLatency: gatewayLatency,
	}
}

type CreateOrderInput struct {
	// Body is the unread JSON request body. It is only consumed once the gateway
	// is known to be configured.
	Body io.Reader
}

type CreateOrderResult = domain.Result

// Execute performs the order creation flow.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *CreateOrderResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseOrderCreate))

	ctx, span := uc.tracer.Start(ctx, spanPrefix+"CreateOrder",
		attribute.String("use_case", useCaseOrderCreate),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var amount int64

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			span.SetAttributes(attribute.Int64("order.amount", amount))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseOrderCreate),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseOrderCreate),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("amount", amount),
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

	if uc.gateway == nil {
		outcome, statusText = "error", "GATEWAY_NOT_CONFIGURED"
		return nil, ErrNotConfigured
	}

	raw, err := domain.DecodeAmount(cmd.Body)
	if err != nil {
		outcome, statusText = "rejected", "BODY_INVALID"
		return nil, err
	}
	amount, err = domain.ParseAmount(raw)
	if err != nil {
		outcome, statusText = "rejected", "AMOUNT_INVALID"
		return nil, err
	}
	req, err := domain.NewRequest(amount)
	if err != nil {
		outcome, statusText = "rejected", "AMOUNT_TOO_LOW"
		return nil, err
	}

	created, err := uc.createAtGateway(ctx, req)
	if err != nil {
		outcome, statusText = "error", "GATEWAY_FAILED"
		return nil, &GatewayError{Err: err}
	}
	if created.Amount != 0 && created.Amount != req.Amount {
		logger.Warn("gateway_amount_mismatch",
			observability.F("requested", req.Amount),
			observability.F("acknowledged", created.Amount),
		)
	}

	span.AddEvent("order.created",
		trace.WithAttributes(attribute.String("order.id", created.ID)),
	)

	return &CreateOrderResult{
		ID:        created.ID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		PublicKey: uc.gateway.KeyID(),
	}, nil
}

// createAtGateway makes the single outbound call and records its external metrics.
func (uc *CreateOrderUseCase) createAtGateway(ctx context.Context, req domain.Request) (*GatewayOrder, error) {
	callStart := time.Now()
	callOutcome := "success"

	created, err := uc.gateway.CreateOrder(ctx, req)
	if err == nil && created == nil {
		err = errors.New("payment gateway returned no order")
	}
	if err != nil {
		callOutcome = "error"
	}

	uc.extCounter.Add(1,
		observability.L("peer", observability.PeerPaymentGateway),
		observability.L("endpoint", gatewayEndpoint),
		observability.L("outcome", callOutcome),
	)
	uc.gatewayLatency.Observe(time.Since(callStart).Seconds())
	return created, err
}

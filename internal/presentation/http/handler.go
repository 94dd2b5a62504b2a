package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/teamcircuitbreakers/promosite/internal/application"
	appInquiry "github.com/teamcircuitbreakers/promosite/internal/application/inquiry"
	appOrder "github.com/teamcircuitbreakers/promosite/internal/application/order"
	domainInquiry "github.com/teamcircuitbreakers/promosite/internal/domain/inquiry"
	domainOrder "github.com/teamcircuitbreakers/promosite/internal/domain/order"
	"github.com/teamcircuitbreakers/promosite/internal/observability"
	"github.com/teamcircuitbreakers/promosite/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type (
	CreateOrderUseCase   = application.UseCase[appOrder.CreateOrderInput, *appOrder.CreateOrderResult]
	SubmitInquiryUseCase = application.UseCase[appInquiry.SubmitInquiryInput, *appInquiry.SubmitInquiryResult]
)

// Site carries the static presentation settings.
type Site struct {
	Name           string
	SupportContact string
}

type Handler struct {
	createOrder   CreateOrderUseCase
	submitInquiry SubmitInquiryUseCase
	site          Site
	pages         *pages
	log           observability.Logger
	httpRequests  observability.Counter
	httpDuration  observability.Histogram
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	maxBodyBytes         = 1 << 20

	msgNotConfigured = "Razorpay client not configured on server"
	msgAmountTooLow  = "Amount must be at least ₹10"
	msgAmountMissing = "amount is required"
	msgAmountInvalid = "amount must be an integer number of paise"
	msgBodyEmpty     = "request body must be a JSON object"
	msgBodyMalformed = "request body is not valid JSON"
)

func NewHandler(createOrder CreateOrderUseCase, submitInquiry SubmitInquiryUseCase, site Site,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		createOrder:   createOrder,
		submitInquiry: submitInquiry,
		site:          site,
		pages:         mustLoadPages(),
		log:           tel.Logger().With(observability.F("component", componentHTTPHandler)),
		httpRequests:  tel.Metrics().Counter(observability.MHTTPRequests),
		httpDuration:  tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace → request logger → HTTP metrics → access log → handler
	h.muxHandle(mux, http.MethodGet, "/{$}", h.handleIndex)
	h.muxHandle(mux, http.MethodGet, "/status", h.handleStatus)
	h.muxHandle(mux, http.MethodPost, "/create_order", h.handleCreateOrder)
	h.muxHandle(mux, http.MethodGet, "/query.html", h.handleQueryPage)
	h.muxHandle(mux, http.MethodPost, "/submit_query", h.handleSubmitQuery)

	return h.withHeadlessProbe(mux)
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	label := strings.TrimSuffix(route, "{$}")
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		if !methodAllowed(method, r.Method) {
			w.Header().Set("Allow", allowHeader(method))
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// Store stable route template for low-cardinality labels
		ctx := contextWithRoute(r.Context(), label)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			ObservabilityMiddleware(
				h.log,
				func(r *http.Request) string {
					return r.Header.Get(headerRequestID)
				},
			)(
				h.withHTTPMetrics(
					h.withAccessLog(http.HandlerFunc(handler)),
				),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

// methodAllowed lets HEAD through wherever GET is routed; net/http drops the body.
func methodAllowed(route, got string) bool {
	return got == route || (route == http.MethodGet && got == http.MethodHead)
}

func allowHeader(method string) string {
	if method == http.MethodGet {
		return "GET, HEAD"
	}
	return method
}

type statusResponse struct {
	Site       string `json:"site"`
	Status     string `json:"status"`
	Accessible bool   `json:"accessible"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Site:       h.site.Name,
		Status:     "active",
		Accessible: true,
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageIndex, pageData{SiteName: h.site.Name})
}

func (h *Handler) handleQueryPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageQuery, pageData{SiteName: h.site.Name})
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.createOrder.Execute(r.Context(), appOrder.CreateOrderInput{
		Body: http.MaxBytesReader(w, r.Body, maxBodyBytes),
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type inquiryFailure struct {
	Reason         string
	SupportContact string
}

func (h *Handler) handleSubmitQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.renderPage(w, r, http.StatusBadRequest, pageInquiryFailure, inquiryFailure{
			Reason:         "The form could not be read.",
			SupportContact: h.site.SupportContact,
		})
		return
	}

	result, err := h.submitInquiry.Execute(r.Context(), appInquiry.SubmitInquiryInput{
		Form: domainInquiry.Form{
			FullName:        r.PostForm.Get("full_name"),
			Phone:           r.PostForm.Get("phone"),
			Address:         r.PostForm.Get("address"),
			Email:           r.PostForm.Get("email"),
			InterestSection: r.PostForm.Get("interest_section"),
		},
	})
	if err != nil {
		status, reason := http.StatusInternalServerError, ""
		if errors.Is(err, domainInquiry.ErrInvalidForm) {
			status, reason = http.StatusBadRequest, validationReason(err)
		}
		h.renderPage(w, r, status, pageInquiryFailure, inquiryFailure{
			Reason:         reason,
			SupportContact: h.site.SupportContact,
		})
		return
	}

	h.renderPage(w, r, http.StatusOK, pageInquirySuccess, result)
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := h.pages.render(w, status, name, data); err != nil {
		logctx.FromOr(r.Context(), h.log).Error("page_render_failed",
			observability.F("page", name),
			observability.F("error", err.Error()),
		)
	}
}

// withHeadlessProbe answers requests without a User-Agent with a 200 JSON body so
// automated probes never see an error status.
func (h *Handler) withHeadlessProbe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			writeJSON(w, http.StatusOK, map[string]string{
				"status":  "ok",
				"message": "Publicly accessible endpoint (" + h.site.Name + ")",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("promosite.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		if route == "unknown" {
			route = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using the injected instruments.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.httpRequests.Add(1, labels...)
		h.httpDuration.Observe(time.Since(start).Seconds(), labels...)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeMessage(w, status, err.Error())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeOrderError(w http.ResponseWriter, err error) {
	var gwErr *appOrder.GatewayError
	switch {
	case errors.Is(err, appOrder.ErrNotConfigured):
		writeMessage(w, http.StatusInternalServerError, msgNotConfigured)
	case errors.Is(err, domainOrder.ErrAmountTooLow):
		writeMessage(w, http.StatusBadRequest, msgAmountTooLow)
	case errors.Is(err, domainOrder.ErrMissingAmount):
		writeMessage(w, http.StatusBadRequest, msgAmountMissing)
	case errors.Is(err, domainOrder.ErrInvalidAmount):
		writeMessage(w, http.StatusBadRequest, msgAmountInvalid)
	case errors.Is(err, domainOrder.ErrEmptyBody):
		writeMessage(w, http.StatusBadRequest, msgBodyEmpty)
	case errors.Is(err, domainOrder.ErrMalformedBody):
		writeMessage(w, http.StatusBadRequest, msgBodyMalformed)
	case errors.As(err, &gwErr):
		writeError(w, http.StatusInternalServerError, gwErr)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// validationReason strips the package prefix from a form validation error.
func validationReason(err error) string {
	msg := err.Error()
	prefix := domainInquiry.ErrInvalidForm.Error() + ": "
	if reason, ok := strings.CutPrefix(msg, prefix); ok && reason != "" {
		return strings.ToUpper(reason[:1]) + reason[1:] + "."
	}
	return "Please check the form and try again."
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}

package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appInquiry "github.com/teamcircuitbreakers/promosite/internal/application/inquiry"
	appOrder "github.com/teamcircuitbreakers/promosite/internal/application/order"
	domainInquiry "github.com/teamcircuitbreakers/promosite/internal/domain/inquiry"
	domainOrder "github.com/teamcircuitbreakers/promosite/internal/domain/order"
	"github.com/teamcircuitbreakers/promosite/internal/infrastructure/mailtemplate"
)

const testUA = "handler-test/1.0"

var testSite = Site{Name: "Team Circuit Breakers", SupportContact: "help@example.com"}

type server struct {
	gateway  *appOrder.MockGateway
	admin    *appInquiry.MockMailer
	customer *appInquiry.MockMailer
	router   http.Handler
}

// newServer wires real use cases over mocked outbound ports. A nil gateway is
// used when withGateway is false.
func newServer(t *testing.T, withGateway bool) *server {
	t.Helper()
	ctrl := gomock.NewController(t)
	s := &server{
		gateway:  appOrder.NewMockGateway(ctrl),
		admin:    appInquiry.NewMockMailer(ctrl),
		customer: appInquiry.NewMockMailer(ctrl),
	}

	var gw appOrder.Gateway
	if withGateway {
		gw = s.gateway
	}
	orderUC := appOrder.NewCreateOrderUseCase(gw, nil)
	inquiryUC := appInquiry.NewSubmitInquiryUseCase(s.admin, s.customer, mailtemplate.MustNew(testSite.Name),
		appInquiry.Settings{
			AdminFrom:      appInquiry.Identity{Address: "notify@example.com"},
			CustomerFrom:   appInquiry.Identity{Address: "hello@example.com"},
			AdminRecipient: "leads@example.com",
			SiteName:       testSite.Name,
		}, nil,
		appInquiry.WithClock(func() time.Time { return time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC) }),
	)
	s.router = NewHandler(orderUC, inquiryUC, testSite, nil).Router()
	return s
}

func (s *server) do(req *http.Request) *httptest.ResponseRecorder {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", testUA)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func postOrder(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/create_order", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestStatus_AlwaysAccessible(t *testing.T) {
	for _, configured := range []bool{true, false} {
		s := newServer(t, configured)
		rec := s.do(httptest.NewRequest(http.MethodGet, "/status", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"site":"Team Circuit Breakers","status":"active","accessible":true}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestRequestID_Echoed(t *testing.T) {
	s := newServer(t, true)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("X-Request-ID", "req-42")

	rec := s.do(req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestHeadlessProbe(t *testing.T) {
	s := newServer(t, true)
	req := httptest.NewRequest(http.MethodPost, "/create_order", strings.NewReader(`{"amount": 5}`))
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"Publicly accessible endpoint (Team Circuit Breakers)"}`, rec.Body.String())
}

func TestPages(t *testing.T) {
	s := newServer(t, true)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Team Circuit Breakers")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/query.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/submit_query"`)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newServer(t, true)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/create_order", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))

	rec = s.do(httptest.NewRequest(http.MethodHead, "/submit_query", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestHeadServedOnGetRoutes(t *testing.T) {
	s := newServer(t, true)
	for _, path := range []string{"/", "/status", "/query.html"} {
		rec := s.do(httptest.NewRequest(http.MethodHead, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCreateOrder_Success(t *testing.T) {
	s := newServer(t, true)
	s.gateway.EXPECT().
		CreateOrder(gomock.Any(), domainOrder.Request{Amount: 50000, Currency: "INR", AutoCapture: true}).
		Return(&appOrder.GatewayOrder{ID: "order_Q1", Amount: 50000, Currency: "INR"}, nil).
		Times(1)
	s.gateway.EXPECT().KeyID().Return("rzp_test_pub")

	rec := s.do(postOrder(`{"amount": 50000}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"order_Q1","amount":50000,"currency":"INR","key":"rzp_test_pub"}`, rec.Body.String())
}

func TestCreateOrder_ValidationNeverCallsGateway(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "too low", body: `{"amount": 999}`, want: "Amount must be at least ₹10"},
		{name: "zero", body: `{"amount": 0}`, want: "Amount must be at least ₹10"},
		{name: "absent", body: `{}`, want: "amount is required"},
		{name: "non-integer", body: `{"amount": 1000.5}`, want: "amount must be an integer number of paise"},
		{name: "not json", body: `amount=1000`, want: "request body is not valid JSON"},
		{name: "empty body", body: ``, want: "request body must be a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t, true)

			rec := s.do(postOrder(tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeBody(t, rec)["error"])
		})
	}
}

func TestCreateOrder_NotConfigured(t *testing.T) {
	s := newServer(t, false)

	rec := s.do(postOrder(`{"amount": 5000}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Razorpay client not configured on server", decodeBody(t, rec)["error"])
}

func TestCreateOrder_NotConfiguredIgnoresBody(t *testing.T) {
	for _, body := range []string{`not json`, ``, `{"amount": 5}`, `[1, 2]`} {
		s := newServer(t, false)

		rec := s.do(postOrder(body))

		assert.Equal(t, http.StatusInternalServerError, rec.Code, "body %q", body)
		assert.Equal(t, "Razorpay client not configured on server", decodeBody(t, rec)["error"], "body %q", body)
	}
}

func TestCreateOrder_AmountBeyondInt64(t *testing.T) {
	s := newServer(t, true)

	rec := s.do(postOrder(`{"amount": 9223372036854775808}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "amount must be an integer number of paise", decodeBody(t, rec)["error"])
}

func TestCreateOrder_GatewayError(t *testing.T) {
	s := newServer(t, true)
	s.gateway.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("Authentication failed")).Times(1)

	rec := s.do(postOrder(`{"amount": 5000}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Authentication failed", decodeBody(t, rec)["error"])
}

func inquiryForm() url.Values {
	return url.Values{
		"full_name":        {"Priya Sharma"},
		"phone":            {"9811122233"},
		"address":          {"7 Lake View, Pune"},
		"email":            {"priya@example.com"},
		"interest_section": {"AI Bootcamp"},
	}
}

func postInquiry(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/submit_query", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestSubmitQuery_SendsBothEmails(t *testing.T) {
	s := newServer(t, true)

	var sent []domainInquiry.EmailMessage
	record := func(_ any, msg domainInquiry.EmailMessage) error {
		sent = append(sent, msg)
		return nil
	}
	gomock.InOrder(
		s.admin.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(record).Times(1),
		s.customer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(record).Times(1),
	)

	rec := s.do(postInquiry(inquiryForm()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thank you, Priya!")

	require.Len(t, sent, 2)
	assert.Equal(t, "leads@example.com", sent[0].To)
	assert.Equal(t, "priya@example.com", sent[1].To)
	assert.Equal(t, "New Lead: AI Bootcamp - Priya Sharma", sent[0].Subject)
	for _, msg := range sent {
		require.NotEmpty(t, msg.HTMLBody)
		for _, v := range []string{"Priya Sharma", "9811122233", "7 Lake View, Pune", "priya@example.com", "AI Bootcamp"} {
			assert.Contains(t, msg.HTMLBody, v)
		}
	}
}

func TestSubmitQuery_FieldsRenderedAsSubmitted(t *testing.T) {
	s := newServer(t, true)

	var bodies []string
	record := func(_ any, msg domainInquiry.EmailMessage) error {
		bodies = append(bodies, msg.HTMLBody)
		return nil
	}
	s.admin.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(record)
	s.customer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(record)

	form := inquiryForm()
	form.Set("phone", " 98111 22233 ")
	form.Set("address", "  Flat 2,  Baner ")
	rec := s.do(postInquiry(form))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, bodies, 2)
	for _, body := range bodies {
		assert.Contains(t, body, " 98111 22233 ")
		assert.Contains(t, body, "  Flat 2,  Baner ")
	}
}

func TestSubmitQuery_CustomerFailureReportsFailure(t *testing.T) {
	s := newServer(t, true)
	s.admin.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	s.customer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("535 auth failed")).Times(1)

	rec := s.do(postInquiry(inquiryForm()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "help@example.com")
	assert.NotContains(t, rec.Body.String(), "Thank you")
}

func TestSubmitQuery_InvalidForm(t *testing.T) {
	s := newServer(t, true)
	form := inquiryForm()
	form.Set("email", "not-an-email")

	rec := s.do(postInquiry(form))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email address is not valid.")
	assert.Contains(t, rec.Body.String(), "help@example.com")
}

func TestSubmitQuery_SingleTokenName(t *testing.T) {
	s := newServer(t, true)
	s.admin.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	s.customer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)

	form := inquiryForm()
	form.Set("full_name", "Cher")
	rec := s.do(postInquiry(form))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thank you, Cher!")
}

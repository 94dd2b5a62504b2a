package order

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domain "github.com/teamcircuitbreakers/promosite/internal/domain/order"
	"github.com/teamcircuitbreakers/promosite/internal/observability"
)

// recordingTelemetry keeps every histogram binding so tests can assert on fixed labels.
type recordingTelemetry struct {
	bound []*boundRecord
}

type boundRecord struct {
	name         observability.MetricKey
	labels       []observability.Label
	observations int
}

func newRecordingTelemetry() *recordingTelemetry { return &recordingTelemetry{} }

func (r *recordingTelemetry) Tracer() observability.Tracer   { return observability.NopTracer() }
func (r *recordingTelemetry) Logger() observability.Logger   { return observability.NopLogger() }
func (r *recordingTelemetry) Metrics() observability.Metrics { return r }

func (r *recordingTelemetry) Counter(observability.MetricKey) observability.Counter {
	return observability.NopCounter()
}

func (r *recordingTelemetry) Histogram(name observability.MetricKey) observability.Histogram {
	return recordingHistogram{owner: r, name: name}
}

type recordingHistogram struct {
	owner *recordingTelemetry
	name  observability.MetricKey
}

func (h recordingHistogram) Observe(float64, ...observability.Label) {}

func (h recordingHistogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	rec := &boundRecord{name: h.name, labels: labels}
	h.owner.bound = append(h.owner.bound, rec)
	return rec
}

func (b *boundRecord) Observe(float64) { b.observations++ }

func amountBody(n int64) io.Reader {
	return strings.NewReader(`{"amount": ` + strconv.FormatInt(n, 10) + `}`)
}

func TestCreateOrder_BelowMinimumNeverCallsGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := NewMockGateway(ctrl)
	uc := NewCreateOrderUseCase(gw, nil)

	for _, amount := range []int64{-100, 0, 1, 500, 999} {
		res, err := uc.Execute(context.Background(), CreateOrderInput{Body: amountBody(amount)})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, domain.ErrAmountTooLow, "amount %d", amount)
	}
}

func TestCreateOrder_InvalidAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := NewMockGateway(ctrl)
	uc := NewCreateOrderUseCase(gw, nil)

	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "absent", body: `{}`, want: domain.ErrMissingAmount},
		{name: "fraction", body: `{"amount": 1500.25}`, want: domain.ErrInvalidAmount},
		{name: "text", body: `{"amount": "lots"}`, want: domain.ErrInvalidAmount},
		{name: "beyond int64", body: `{"amount": 9223372036854775808}`, want: domain.ErrInvalidAmount},
		{name: "empty body", body: ``, want: domain.ErrEmptyBody},
		{name: "not json", body: `amount=5000`, want: domain.ErrMalformedBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), CreateOrderInput{Body: strings.NewReader(tt.body)})
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, domain.IsValidation(err))
		})
	}
}

func TestCreateOrder_ValidAmountCallsGatewayOnce(t *testing.T) {
	for _, amount := range []int64{1000, 1001, 50000, 9_999_999} {
		t.Run(strconv.FormatInt(amount, 10), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gw := NewMockGateway(ctrl)

			gw.EXPECT().
				CreateOrder(gomock.Any(), domain.Request{Amount: amount, Currency: "INR", AutoCapture: true}).
				Return(&GatewayOrder{ID: "order_abc", Amount: amount, Currency: "INR"}, nil).
				Times(1)
			gw.EXPECT().KeyID().Return("rzp_test_key")

			uc := NewCreateOrderUseCase(gw, nil)
			res, err := uc.Execute(context.Background(), CreateOrderInput{Body: amountBody(amount)})
			require.NoError(t, err)

			assert.Equal(t, &CreateOrderResult{
				ID:        "order_abc",
				Amount:    amount,
				Currency:  "INR",
				PublicKey: "rzp_test_key",
			}, res)
		})
	}
}

func TestCreateOrder_EchoesRequestedAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := NewMockGateway(ctrl)
	gw.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
		Return(&GatewayOrder{ID: "order_x", Amount: 2001, Currency: "INR"}, nil)
	gw.EXPECT().KeyID().Return("k")

	res, err := NewCreateOrderUseCase(gw, nil).Execute(context.Background(), CreateOrderInput{Body: amountBody(2000)})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), res.Amount)
}

func TestCreateOrder_NotConfigured(t *testing.T) {
	uc := NewCreateOrderUseCase(nil, nil)

	res, err := uc.Execute(context.Background(), CreateOrderInput{Body: amountBody(5000)})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCreateOrder_NotConfiguredCheckedBeforeAmount(t *testing.T) {
	uc := NewCreateOrderUseCase(nil, nil)

	_, err := uc.Execute(context.Background(), CreateOrderInput{Body: amountBody(5)})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCreateOrder_NotConfiguredLeavesBodyUnread(t *testing.T) {
	uc := NewCreateOrderUseCase(nil, nil)

	for _, body := range []string{``, `not json`, `{"amount": "x"}`} {
		r := strings.NewReader(body)
		_, err := uc.Execute(context.Background(), CreateOrderInput{Body: r})
		assert.ErrorIs(t, err, ErrNotConfigured, "body %q", body)
		assert.Equal(t, len(body), r.Len(), "body %q was read", body)
	}
}

func TestCreateOrder_RecordsGatewayLatencyUnderBoundLabels(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := NewMockGateway(ctrl)
	gw.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
		Return(&GatewayOrder{ID: "order_m", Amount: 5000, Currency: "INR"}, nil)
	gw.EXPECT().KeyID().Return("k")

	tel := newRecordingTelemetry()
	_, err := NewCreateOrderUseCase(gw, tel).Execute(context.Background(), CreateOrderInput{Body: amountBody(5000)})
	require.NoError(t, err)

	require.Len(t, tel.bound, 1)
	assert.Equal(t, observability.MExternalRequestDuration, tel.bound[0].name)
	assert.Equal(t, []observability.Label{
		observability.L("peer", observability.PeerPaymentGateway),
		observability.L("endpoint", "orders.create"),
	}, tel.bound[0].labels)
	assert.Equal(t, 1, tel.bound[0].observations)
}

func TestCreateOrder_GatewayFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := NewMockGateway(ctrl)
	upstream := errors.New("Authentication failed")
	gw.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, upstream).Times(1)

	res, err := NewCreateOrderUseCase(gw, nil).Execute(context.Background(), CreateOrderInput{Body: amountBody(5000)})
	assert.Nil(t, res)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.ErrorIs(t, err, upstream)
	assert.Equal(t, "Authentication failed", err.Error())
}

func TestCreateOrder_GatewayReturnsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := NewMockGateway(ctrl)
	gw.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := NewCreateOrderUseCase(gw, nil).Execute(context.Background(), CreateOrderInput{Body: amountBody(5000)})
	var gwErr *GatewayError
	assert.ErrorAs(t, err, &gwErr)
}

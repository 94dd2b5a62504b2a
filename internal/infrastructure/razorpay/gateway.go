// Package razorpay adapts the Razorpay orders API to the order gateway port.
package razorpay

import (
	"context"
	"errors"
	"fmt"
	"math"

	rzp "github.com/razorpay/razorpay-go"
	apporder "github.com/teamcircuitbreakers/promosite/internal/application/order"
	domain "github.com/teamcircuitbreakers/promosite/internal/domain/order"
)

var ErrMissingCredentials = errors.New("razorpay: key id and key secret are required")

// orderCreator is the slice of the SDK used here; *resources.Order satisfies it.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Gateway creates orders through the official Razorpay client.
type Gateway struct {
	keyID  string
	orders orderCreator
}

var _ apporder.Gateway = (*Gateway)(nil)

// New returns a gateway authenticated with the given key pair.
func New(keyID, keySecret string) (*Gateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrMissingCredentials
	}
	client := rzp.NewClient(keyID, keySecret)
	return &Gateway{keyID: keyID, orders: client.Order}, nil
}

func (g *Gateway) KeyID() string { return g.keyID }

// CreateOrder posts the order. The SDK call is not context aware, so ctx is only
// checked before the request is made.
func (g *Gateway) CreateOrder(ctx context.Context, req domain.Request) (*apporder.GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	capture := 0
	if req.AutoCapture {
		capture = 1
	}
	body, err := g.orders.Create(map[string]interface{}{
		"amount":          req.Amount,
		"currency":        req.Currency,
		"payment_capture": capture,
	}, nil)
	if err != nil {
		return nil, err
	}
	return decodeOrder(body)
}

func decodeOrder(body map[string]interface{}) (*apporder.GatewayOrder, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("razorpay: order response has no id")
	}
	amount, err := toInt64(body["amount"])
	if err != nil {
		return nil, fmt.Errorf("razorpay: order amount: %w", err)
	}
	currency, _ := body["currency"].(string)
	return &apporder.GatewayOrder{ID: id, Amount: amount, Currency: currency}, nil
}

// toInt64 converts the number types a decoded JSON body may hold.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integer value %v", n)
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

package order

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=order

import (
	"context"

	domain "github.com/teamcircuitbreakers/promosite/internal/domain/order"
)

// GatewayOrder is the order as acknowledged by the payment gateway.
type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
}

// Gateway is the outbound port to the payment gateway.
type Gateway interface {
	CreateOrder(ctx context.Context, req domain.Request) (*GatewayOrder, error)
	// KeyID is the publishable key handed to the client-side checkout.
	KeyID() string
}

package payment

import (
	"context"
	"errors"

	"retailpos/backend/internal/xid"
)

var ErrProcessorDeclined = errors.New("payment processor declined")

// Intent is the minted charge handed back by the processor. Only the
// transaction id and client secret travel to the caller; capture and
// refund flows stay on the processor side.
type Intent struct {
	TransactionID string
	ClientSecret  string
	Status        string
}

// Processor mints a payment intent with an external payment provider.
// Implementations must be safe for concurrent use.
type Processor interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, methodToken string) (Intent, error)
}

// Simulated approves every charge locally. Used in dev mode and tests,
// where no real gateway credentials exist.
type Simulated struct{}

func (Simulated) CreateIntent(_ context.Context, amountCents int64, _ string, methodToken string) (Intent, error) {
	if amountCents < 1 || methodToken == "" {
		return Intent{}, ErrProcessorDeclined
	}
	return Intent{
		TransactionID: xid.New("sim"),
		ClientSecret:  xid.New("sim-secret"),
		Status:        "succeeded",
	}, nil
}

// Package risk tracks how much of the bankroll is committed to in-flight
// orders. The Kelly sizer takes its remaining-fraction cap from here, so a
// burst of correlated news cannot stack exposure past the bankroll.
package risk

import (
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
)

// Accountant owns the bankroll and the fraction of it currently committed
// to orders awaiting execution. Mutex-guarded: the strategy actor commits
// while the execution path releases.
type Accountant struct {
	mu        sync.Mutex
	bankroll  decimal.Decimal
	committed map[string]decimal.Decimal // clientOrderID -> committed fraction
	total     decimal.Decimal
	logger    *slog.Logger
}

// NewAccountant creates an accountant for the given bankroll.
func NewAccountant(bankroll decimal.Decimal, logger *slog.Logger) *Accountant {
	return &Accountant{
		bankroll:  bankroll,
		committed: make(map[string]decimal.Decimal),
		logger:    logger.With("component", "risk"),
	}
}

// Bankroll returns the base capital.
func (a *Accountant) Bankroll() decimal.Decimal {
	return a.bankroll
}

// RemainingFraction returns the bankroll fraction not yet committed to
// in-flight orders, floored at zero.
func (a *Accountant) RemainingFraction() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()

	remaining := decimal.NewFromInt(1).Sub(a.total)
	if remaining.Sign() < 0 {
		return decimal.Zero
	}
	return remaining
}

// Commit records fraction as committed under the order's client ID.
func (a *Accountant) Commit(clientOrderID string, fraction decimal.Decimal) {
	if fraction.Sign() <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.committed[clientOrderID] = fraction
	a.total = a.total.Add(fraction)
}

// Release frees the fraction committed under the order's client ID, called
// when a terminal execution arrives. Unknown IDs are ignored — executions
// may outlive a restart that lost the commit.
func (a *Accountant) Release(clientOrderID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fraction, ok := a.committed[clientOrderID]
	if !ok {
		return
	}
	delete(a.committed, clientOrderID)
	a.total = a.total.Sub(fraction)
	if a.total.Sign() < 0 {
		a.logger.Error("committed total went negative, resetting", "order", clientOrderID)
		a.total = decimal.Zero
	}
}

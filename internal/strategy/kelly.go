package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/Wad-Law/ingestor/pkg/types"
)

// SizedDecision is an edged candidate with its stake fraction after risk
// caps. size_fraction ≤ kelly_fraction ≤ 1 always holds.
type SizedDecision struct {
	Candidate     EdgedCandidate
	KellyFraction decimal.Decimal
	SizeFraction  decimal.Decimal
	Side          types.Side
}

// KellySizer turns edges into stake fractions: the growth-optimal Kelly
// fraction for a binary payoff at the odds implied by the market price,
// capped by the per-trade maximum and whatever bankroll fraction remains.
type KellySizer struct {
	maxFractionPerTrade decimal.Decimal
}

// NewKellySizer creates a sizer with the given per-trade cap.
func NewKellySizer(maxFractionPerTrade float64) *KellySizer {
	return &KellySizer{maxFractionPerTrade: decimal.NewFromFloat(maxFractionPerTrade)}
}

// Size computes stake fractions for a batch of edged candidates.
// remainingFraction is the bankroll fraction still uncommitted; each sized
// decision draws it down for the rest of the batch. Candidates sizing to
// zero are dropped.
func (k *KellySizer) Size(candidates []EdgedCandidate, remainingFraction decimal.Decimal) []SizedDecision {
	var out []SizedDecision
	remaining := remainingFraction

	for _, c := range candidates {
		if remaining.Sign() <= 0 {
			break
		}

		kelly := KellyFraction(c.Probability, entryPrice(c))
		if kelly.Sign() <= 0 {
			continue
		}

		size := decimal.Min(kelly, k.maxFractionPerTrade, remaining)
		if size.Sign() <= 0 {
			continue
		}

		out = append(out, SizedDecision{
			Candidate:     c,
			KellyFraction: kelly,
			SizeFraction:  size,
			Side:          c.Side,
		})
		remaining = remaining.Sub(size)
	}
	return out
}

// entryPrice is the price of the token actually bought: the Yes midpoint
// for BuyYes, its complement for BuyNo.
func entryPrice(c EdgedCandidate) decimal.Decimal {
	if c.Side == types.BuyNo {
		return one.Sub(c.MarketPrice)
	}
	return c.MarketPrice
}

// KellyFraction computes max(0, (b·p − q)/b) for a binary bet entered at
// price, where b = (1 − price)/price is the payoff per unit staked and
// q = 1 − p. Degenerate prices (≤0 or ≥1) size to zero.
func KellyFraction(p, price decimal.Decimal) decimal.Decimal {
	if price.Sign() <= 0 || price.Cmp(one) >= 0 {
		return decimal.Zero
	}
	b := one.Sub(price).Div(price)
	if b.Sign() <= 0 {
		return decimal.Zero
	}
	q := one.Sub(p)
	kelly := b.Mul(p).Sub(q).Div(b)
	if kelly.Sign() < 0 {
		return decimal.Zero
	}
	if kelly.Cmp(one) > 0 {
		return one
	}
	return kelly
}

// Package limit enforces the per-trade ceiling in code, independent of what
// the reasoning collaborator was told.
package limit

import (
	"context"

	"farcaster-trader/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Enforcer clamps trade amounts to Ceiling.
type Enforcer struct {
	Ceiling decimal.Decimal
}

func New(ceiling decimal.Decimal) Enforcer {
	return Enforcer{Ceiling: ceiling}
}

// Clamp returns min(amount, Ceiling). Negative amounts become zero.
func (e Enforcer) Clamp(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, e.Ceiling)
}

// Executor is the execution boundary guarded by Guard.
type Executor interface {
	Execute(ctx context.Context, req model.ExecutionRequest) error
}

// Guard clamps every request before it reaches next.
type Guard struct {
	limit Enforcer
	next  Executor
	log   *zap.Logger
}

func NewGuard(e Enforcer, next Executor, log *zap.Logger) *Guard {
	return &Guard{limit: e, next: next, log: log}
}

func (g *Guard) Execute(ctx context.Context, req model.ExecutionRequest) error {
	clamped := g.limit.Clamp(req.AmountUSDC)
	if !clamped.Equal(req.AmountUSDC) {
		g.log.Warn("execution amount clamped at boundary",
			zap.String("event_key", string(req.EventKey)),
			zap.String("requested", req.AmountUSDC.String()),
			zap.String("enforced", clamped.String()))
		req.AmountUSDC = clamped
	}
	return g.next.Execute(ctx, req)
}

// Package executor hands clamped trade requests to whatever performs the swap.
package executor

import (
	"context"

	"farcaster-trader/internal/model"

	"go.uber.org/zap"
)

// Executor performs, or schedules, one trade.
type Executor interface {
	Execute(ctx context.Context, req model.ExecutionRequest) error
	Close() error
}

// Log records requests without trading. It is the default dry-run executor.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Execute(_ context.Context, req model.ExecutionRequest) error {
	l.log.Info("dry-run execution",
		zap.String("dispatch_id", req.DispatchID),
		zap.String("event_key", string(req.EventKey)),
		zap.String("action", string(req.Action)),
		zap.String("token", req.Token),
		zap.String("token_address", req.TokenAddress),
		zap.String("quote_address", req.QuoteAddress),
		zap.String("amount_usdc", req.AmountUSDC.String()))
	return nil
}

func (l *Log) Close() error { return nil }

// Package model defines the payloads that flow through the cast gate.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionNone Action = "none"
)

// TradeIntent is the structured decision derived from a collaborator reply.
// Amount is denominated in the quote token (USDC). HasAmount is false when
// the reply named no amount at all, as opposed to an explicit zero.
type TradeIntent struct {
	Action     Action          `json:"action"`
	Token      string          `json:"token,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	HasAmount  bool            `json:"-"`
	Confidence float64         `json:"confidence,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// Actionable reports whether the intent asks for a trade.
func (t TradeIntent) Actionable() bool {
	return (t.Action == ActionBuy || t.Action == ActionSell) && t.Amount.IsPositive()
}

// ExecutionRequest is handed to the execution collaborator.
type ExecutionRequest struct {
	DispatchID      string          `json:"dispatch_id"`
	EventKey        EventKey        `json:"event_key"`
	Username        string          `json:"username"`
	Action          Action          `json:"action"`
	Token           string          `json:"token"`
	TokenAddress    string          `json:"token_address"`
	QuoteAddress    string          `json:"quote_address"`
	AmountUSDC      decimal.Decimal `json:"amount_usdc"`
	RequestedAmount decimal.Decimal `json:"requested_amount_usdc"`
	CreatedAt       time.Time       `json:"created_at"`
}

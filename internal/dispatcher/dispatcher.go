// Package dispatcher turns an authorized cast into at most one bounded trade.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"farcaster-trader/internal/agent"
	"farcaster-trader/internal/limit"
	"farcaster-trader/internal/model"
	"farcaster-trader/internal/tokens"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Request is one cast that passed dedup and authorization.
type Request struct {
	Key      model.EventKey
	Username string
	Text     string
}

// Result describes what a dispatch decided and did.
type Result struct {
	DispatchID string
	Reply      string
	Intent     model.TradeIntent
	Requested  decimal.Decimal
	Executed   bool
}

type Dispatcher struct {
	log      *zap.Logger
	agent    agent.Collaborator
	parser   *Parser
	limit    limit.Enforcer
	registry *tokens.Registry
	exec     limit.Executor
	now      func() time.Time
}

func New(log *zap.Logger, a agent.Collaborator, p *Parser, l limit.Enforcer, r *tokens.Registry, exec limit.Executor) *Dispatcher {
	return &Dispatcher{
		log:      log,
		agent:    a,
		parser:   p,
		limit:    l,
		registry: r,
		exec:     exec,
		now:      time.Now,
	}
}

// BuildPrompt renders the instruction sent to the collaborator for text.
func (d *Dispatcher) BuildPrompt(text string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this Farcaster message and decide whether to execute a trade (limit %s USDC): '%s'\n\n", d.limit.Ceiling.String(), text)
	sb.WriteString("Notes:\n")
	for i, line := range d.registry.Instructions() {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, line)
	}
	fmt.Fprintf(&sb, "\nNever propose an amount above %s USDC. Do not execute anything yourself.\n", d.limit.Ceiling.String())
	sb.WriteString("Answer with a single JSON object and nothing else:\n")
	sb.WriteString(replySchema)
	sb.WriteString("\n")
	return sb.String()
}

// Dispatch asks the collaborator about req and executes the clamped intent.
// Collaborator and executor failures are returned; unusable replies are
// logged and result in no trade.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	res := Result{DispatchID: uuid.NewString()}
	log := d.log.With(
		zap.String("dispatch_id", res.DispatchID),
		zap.String("event_key", string(req.Key)),
		zap.String("username", req.Username))

	reply, err := d.agent.Send(ctx, d.BuildPrompt(req.Text))
	if err != nil {
		return res, fmt.Errorf("agent send: %w", err)
	}
	res.Reply = reply
	log.Info("agent replied", zap.String("reply", reply))

	intent, err := d.parser.Parse(reply)
	if err != nil {
		log.Warn("agent reply not usable, no trade", zap.Error(err))
		res.Intent = model.TradeIntent{Action: model.ActionNone}
		return res, nil
	}
	if intent.Action != model.ActionNone && !intent.HasAmount {
		intent.Amount = d.limit.Ceiling
		intent.HasAmount = true
	}
	res.Requested = intent.Amount
	intent.Amount = d.limit.Clamp(intent.Amount)
	res.Intent = intent

	if !intent.Actionable() {
		log.Info("no trade intent", zap.String("reason", intent.Reason))
		return res, nil
	}
	if !intent.Amount.Equal(res.Requested) {
		log.Warn("trade amount clamped",
			zap.String("requested", res.Requested.String()),
			zap.String("enforced", intent.Amount.String()))
	}

	token, err := d.registry.Resolve(intent.Token)
	if err != nil {
		log.Warn("unsupported token, no trade", zap.Error(err))
		return res, nil
	}
	quote := d.registry.Quote()
	if token.Address == quote.Address {
		log.Warn("trade token equals quote token, no trade", zap.String("token", token.Symbol))
		return res, nil
	}

	execReq := model.ExecutionRequest{
		DispatchID:      res.DispatchID,
		EventKey:        req.Key,
		Username:        req.Username,
		Action:          intent.Action,
		Token:           token.Symbol,
		TokenAddress:    token.Address,
		QuoteAddress:    quote.Address,
		AmountUSDC:      intent.Amount,
		RequestedAmount: res.Requested,
		CreatedAt:       d.now().UTC(),
	}
	if err := d.exec.Execute(ctx, execReq); err != nil {
		return res, fmt.Errorf("execute %s %s: %w", intent.Action, token.Symbol, err)
	}
	res.Executed = true
	log.Info("trade dispatched",
		zap.String("action", string(intent.Action)),
		zap.String("token", token.Symbol),
		zap.String("amount_usdc", intent.Amount.String()))
	return res, nil
}

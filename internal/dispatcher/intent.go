package dispatcher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"farcaster-trader/internal/apperror"
	"farcaster-trader/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrNoIntent      = errors.New("reply has no JSON intent")
	ErrInvalidIntent = errors.New("reply intent is invalid")
)

// intentReply is the schema the collaborator is asked to answer with.
type intentReply struct {
	Action     string      `json:"action" validate:"required,oneof=buy sell none"`
	Token      string      `json:"token" validate:"required_unless=Action none"`
	Amount     json.Number `json:"amount" validate:"omitempty,numeric"`
	Confidence float64     `json:"confidence" validate:"gte=0,lte=1"`
	Reason     string      `json:"reason"`
}

const replySchema = `{"action": "buy" | "sell" | "none", "token": "<symbol>", "amount": <USDC value>, "confidence": <0..1>, "reason": "<short explanation>"}`

// Parser validates collaborator replies into TradeIntents.
type Parser struct {
	validate *validator.Validate
}

func NewParser(v *validator.Validate) *Parser {
	return &Parser{validate: v}
}

// Parse extracts the first JSON object in reply and validates it. A missing
// amount on buy or sell leaves HasAmount unset for the caller to fill in.
func (p *Parser) Parse(reply string) (model.TradeIntent, error) {
	raw, ok := firstObject(reply)
	if !ok {
		return model.TradeIntent{Action: model.ActionNone}, ErrNoIntent
	}

	var ir intentReply
	if err := json.Unmarshal(raw, &ir); err != nil {
		return model.TradeIntent{Action: model.ActionNone}, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	ir.Action = strings.ToLower(strings.TrimSpace(ir.Action))
	if err := p.validate.Struct(ir); err != nil {
		return model.TradeIntent{Action: model.ActionNone}, fmt.Errorf("%w: %s", ErrInvalidIntent, apperror.Summary(err))
	}

	intent := model.TradeIntent{
		Action:     model.Action(ir.Action),
		Token:      strings.TrimSpace(ir.Token),
		Confidence: ir.Confidence,
		Reason:     ir.Reason,
	}
	if ir.Amount != "" {
		amount, err := decimal.NewFromString(ir.Amount.String())
		if err != nil {
			return model.TradeIntent{Action: model.ActionNone}, fmt.Errorf("%w: amount: %v", ErrInvalidIntent, err)
		}
		if amount.IsNegative() {
			return model.TradeIntent{Action: model.ActionNone}, fmt.Errorf("%w: amount must not be negative", ErrInvalidIntent)
		}
		intent.Amount = amount
		intent.HasAmount = true
	}
	return intent, nil
}

// firstObject returns the first complete JSON object embedded in s, which
// lets the collaborator wrap its answer in prose or a code fence.
func firstObject(s string) (json.RawMessage, bool) {
	for i := strings.IndexByte(s, '{'); i >= 0; {
		dec := json.NewDecoder(bytes.NewReader([]byte(s[i:])))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil && len(raw) > 0 && raw[0] == '{' {
			return raw, true
		}
		next := strings.IndexByte(s[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, false
}

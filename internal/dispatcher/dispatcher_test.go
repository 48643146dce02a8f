package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"farcaster-trader/internal/limit"
	"farcaster-trader/internal/model"
	"farcaster-trader/internal/tokens"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeAgent struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeAgent) Send(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeExecutor struct {
	reqs []model.ExecutionRequest
	err  error
}

func (f *fakeExecutor) Execute(_ context.Context, req model.ExecutionRequest) error {
	f.reqs = append(f.reqs, req)
	return f.err
}

func newDispatcher(t *testing.T, a *fakeAgent, ex *fakeExecutor) *Dispatcher {
	t.Helper()
	reg, err := tokens.New(tokens.Polygon())
	require.NoError(t, err)
	return New(zaptest.NewLogger(t), a, NewParser(validator.New()), limit.New(decimal.NewFromInt(1)), reg, ex)
}

var req = Request{Key: "cast.created100", Username: "0xhardman", Text: "buy some ETH"}

func TestBuildPrompt(t *testing.T) {
	d := newDispatcher(t, &fakeAgent{}, &fakeExecutor{})

	p := d.BuildPrompt("buy some ETH")

	assert.Contains(t, p, "limit 1 USDC")
	assert.Contains(t, p, "'buy some ETH'")
	assert.Contains(t, p, tokens.NativeUSDC)
	assert.Contains(t, p, "Never use bridged USDC.e")
	assert.Contains(t, p, "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	assert.Contains(t, p, `"action"`)
	assert.NotContains(t, p, tokens.BridgedUSDC)
}

func TestDispatch_ClampsRequestedAmount(t *testing.T) {
	a := &fakeAgent{reply: "Sure.\n```json\n{\"action\":\"buy\",\"token\":\"ETH\",\"amount\":5,\"confidence\":0.9,\"reason\":\"bullish\"}\n```"}
	ex := &fakeExecutor{}
	d := newDispatcher(t, a, ex)

	res, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.Executed)
	assert.True(t, decimal.NewFromInt(5).Equal(res.Requested))
	assert.True(t, decimal.NewFromInt(1).Equal(res.Intent.Amount))
	require.Len(t, ex.reqs, 1)
	got := ex.reqs[0]
	assert.Equal(t, model.ActionBuy, got.Action)
	assert.Equal(t, "WETH", got.Token)
	assert.Equal(t, "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", got.TokenAddress)
	assert.Equal(t, tokens.NativeUSDC, got.QuoteAddress)
	assert.True(t, decimal.NewFromInt(1).Equal(got.AmountUSDC))
	assert.Equal(t, model.EventKey("cast.created100"), got.EventKey)
	assert.Equal(t, res.DispatchID, got.DispatchID)
	require.Len(t, a.prompts, 1)
}

func TestDispatch_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		executed bool
		amount   string
	}{
		{"no amount uses ceiling", `{"action":"sell","token":"MATIC"}`, true, "1"},
		{"small amount kept", `{"action":"buy","token":"BTC","amount":"0.25"}`, true, "0.25"},
		{"explicit zero amount", `{"action":"buy","token":"ETH","amount":0,"reason":"not worth trading"}`, false, "0"},
		{"explicit zero string amount", `{"action":"sell","token":"WETH","amount":"0"}`, false, "0"},
		{"none", `{"action":"none","reason":"weather talk"}`, false, "0"},
		{"prose only", `No trade here.`, false, "0"},
		{"unknown action", `{"action":"hodl","token":"ETH"}`, false, "0"},
		{"missing token", `{"action":"buy","amount":1}`, false, "0"},
		{"negative amount", `{"action":"buy","token":"ETH","amount":-2}`, false, "0"},
		{"unknown token", `{"action":"buy","token":"DOGE","amount":1}`, false, "1"},
		{"quote token", `{"action":"buy","token":"USDC","amount":1}`, false, "1"},
		{"bridged usdc", `{"action":"buy","token":"USDC.e","amount":1}`, false, "1"},
		{"bad confidence", `{"action":"buy","token":"ETH","confidence":3}`, false, "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ex := &fakeExecutor{}
			d := newDispatcher(t, &fakeAgent{reply: tc.reply}, ex)

			res, err := d.Dispatch(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tc.executed, res.Executed)
			assert.Equal(t, tc.executed, len(ex.reqs) == 1)
			assert.True(t, decimal.RequireFromString(tc.amount).Equal(res.Intent.Amount), "amount %s", res.Intent.Amount)
			assert.True(t, res.Intent.Amount.LessThanOrEqual(decimal.NewFromInt(1)))
		})
	}
}

func TestDispatch_AgentError(t *testing.T) {
	ex := &fakeExecutor{}
	d := newDispatcher(t, &fakeAgent{err: errors.New("timeout")}, ex)

	_, err := d.Dispatch(context.Background(), req)
	assert.ErrorContains(t, err, "timeout")
	assert.Empty(t, ex.reqs)
}

func TestDispatch_ExecutorError(t *testing.T) {
	ex := &fakeExecutor{err: errors.New("broker down")}
	d := newDispatcher(t, &fakeAgent{reply: `{"action":"buy","token":"ETH","amount":1}`}, ex)

	res, err := d.Dispatch(context.Background(), req)
	assert.ErrorContains(t, err, "broker down")
	assert.False(t, res.Executed)
}

func TestParse(t *testing.T) {
	p := NewParser(validator.New())

	intent, err := p.Parse(`I think {"action":"BUY","token":"ETH","amount":"0.5","confidence":0.7,"reason":"r"} is right`)
	require.NoError(t, err)
	assert.Equal(t, model.ActionBuy, intent.Action)
	assert.Equal(t, "ETH", intent.Token)
	assert.True(t, decimal.RequireFromString("0.5").Equal(intent.Amount))
	assert.True(t, intent.HasAmount)
	assert.Equal(t, 0.7, intent.Confidence)

	intent, err = p.Parse(`{"action":"buy","token":"ETH"}`)
	require.NoError(t, err)
	assert.False(t, intent.HasAmount)

	intent, err = p.Parse(`{"action":"buy","token":"ETH","amount":0}`)
	require.NoError(t, err)
	assert.True(t, intent.HasAmount)
	assert.True(t, intent.Amount.IsZero())

	_, err = p.Parse("nothing to see")
	assert.ErrorIs(t, err, ErrNoIntent)

	_, err = p.Parse(`{"action":"buy"}`)
	assert.ErrorIs(t, err, ErrInvalidIntent)
	assert.ErrorContains(t, err, "Token is required for buy and sell")

	intent, err = p.Parse(`{broken {"action":"none"}`)
	require.NoError(t, err)
	assert.Equal(t, model.ActionNone, intent.Action)
}

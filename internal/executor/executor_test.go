package executor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"farcaster-trader/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampleRequest() model.ExecutionRequest {
	return model.ExecutionRequest{
		DispatchID:      "d-1",
		EventKey:        "cast.created100",
		Username:        "0xhardman",
		Action:          model.ActionBuy,
		Token:           "WETH",
		TokenAddress:    "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619",
		QuoteAddress:    "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		AmountUSDC:      decimal.NewFromInt(1),
		RequestedAmount: decimal.NewFromInt(5),
		CreatedAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLogExecutor(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ex := NewLog(zap.New(core))

	require.NoError(t, ex.Execute(context.Background(), sampleRequest()))

	entries := logs.FilterMessage("dry-run execution").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "cast.created100", fields["event_key"])
	assert.Equal(t, "1", fields["amount_usdc"])
	assert.NoError(t, ex.Close())
}

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage(sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "cast.created100", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "d-1", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "buy", decoded["action"])
	assert.Equal(t, "1", decoded["amount_usdc"])
	assert.Equal(t, "5", decoded["requested_amount_usdc"])
}

func TestNewKafka(t *testing.T) {
	k := NewKafka([]string{"localhost:9092"}, "trades")
	assert.Equal(t, "trades", k.Topic)
	assert.NoError(t, k.Close())
}

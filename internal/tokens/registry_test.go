package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadUSDC(t *testing.T) {
	_, err := New(map[string]string{"WETH": "0x1"})
	assert.ErrorIs(t, err, ErrMissingUSDC)

	_, err = New(map[string]string{"USDC": BridgedUSDC})
	assert.ErrorIs(t, err, ErrBridgedUSDC)

	_, err = New(map[string]string{"USDC": "0xabc", "USDC.e": "0xABC"})
	assert.ErrorIs(t, err, ErrBridgedUSDC)
}

func TestResolve(t *testing.T) {
	r, err := New(Polygon())
	require.NoError(t, err)

	tests := []struct {
		symbol string
		want   string
	}{
		{"USDC", NativeUSDC},
		{"usdc", NativeUSDC},
		{"ETH", "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"},
		{"$eth", "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"},
		{"BTC", "0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6"},
		{"MATIC", "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"},
	}
	for _, tc := range tests {
		t.Run(tc.symbol, func(t *testing.T) {
			tok, err := r.Resolve(tc.symbol)
			require.NoError(t, err)
			assert.Equal(t, tc.want, tok.Address)
		})
	}

	_, err = r.Resolve("DOGE")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestResolve_BridgedUSDCNotTradable(t *testing.T) {
	addrs := Polygon()
	addrs["USDCE"] = BridgedUSDC
	r, err := New(addrs)
	require.NoError(t, err)

	for _, sym := range []string{"USDC.e", "usdc.E", "$USDC.e", "USDCE"} {
		t.Run(sym, func(t *testing.T) {
			_, err := r.Resolve(sym)
			assert.ErrorIs(t, err, ErrNotTradable)
		})
	}
	assert.Contains(t, r.Symbols(), "USDC.E")
}

func TestRegistryIsACopy(t *testing.T) {
	src := Polygon()
	r, err := New(src)
	require.NoError(t, err)

	src["USDC"] = BridgedUSDC
	assert.Equal(t, NativeUSDC, r.Quote().Address)
}

func TestInstructions(t *testing.T) {
	r, err := New(Polygon())
	require.NoError(t, err)

	lines := r.Instructions()
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], NativeUSDC)
	assert.Contains(t, lines[0], "Never use bridged USDC.e")
	assert.Contains(t, lines[2], "WETH (address: 0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619)")
}

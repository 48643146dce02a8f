// Package tokens holds the immutable token symbol to on-chain address registry.
package tokens

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Polygon mainnet addresses.
const (
	NativeUSDC  = "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"
	BridgedUSDC = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
)

var (
	ErrUnknownToken = errors.New("unknown token symbol")
	ErrMissingUSDC  = errors.New("registry has no USDC entry")
	ErrBridgedUSDC  = errors.New("USDC must resolve to the native address, not USDC.e")
	ErrNotTradable  = errors.New("token is not tradable")
)

// aliases maps the symbols people write to the registry entry that is traded.
var aliases = map[string]string{
	"ETH":   "WETH",
	"BTC":   "WBTC",
	"MATIC": "WMATIC",
	"POL":   "WMATIC",
}

// Polygon returns a fresh copy of the default Polygon registry.
func Polygon() map[string]string {
	return map[string]string{
		"USDC":   NativeUSDC,
		"USDC.e": BridgedUSDC,
		"WETH":   "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619",
		"WBTC":   "0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6",
		"MATIC":  "0x0000000000000000000000000000000000001010",
		"WMATIC": "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
	}
}

// Registry is safe for concurrent reads; it has no mutators.
type Registry struct {
	addrs map[string]string
}

// Token is a resolved registry entry.
type Token struct {
	Symbol  string
	Address string
}

// New copies addrs into a Registry. It fails when USDC is missing or points
// at the bridged USDC.e contract.
func New(addrs map[string]string) (*Registry, error) {
	r := &Registry{addrs: make(map[string]string, len(addrs))}
	for sym, addr := range addrs {
		r.addrs[strings.ToUpper(strings.TrimSpace(sym))] = strings.TrimSpace(addr)
	}

	usdc, ok := r.addrs["USDC"]
	if !ok || usdc == "" {
		return nil, ErrMissingUSDC
	}
	if bridged, ok := r.addrs["USDC.E"]; strings.EqualFold(usdc, BridgedUSDC) || (ok && strings.EqualFold(usdc, bridged)) {
		return nil, ErrBridgedUSDC
	}
	return r, nil
}

// Resolve returns the tradable token for a symbol. ETH, BTC and MATIC map to
// their wrapped contracts and USDC always maps to native USDC. Bridged USDC.e
// is never tradable, by symbol or by address.
func (r *Registry) Resolve(symbol string) (Token, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	sym = strings.TrimPrefix(sym, "$")
	if sym == "USDC.E" {
		return Token{}, fmt.Errorf("%w: %q", ErrNotTradable, symbol)
	}
	if alias, ok := aliases[sym]; ok {
		if _, exists := r.addrs[alias]; exists {
			sym = alias
		}
	}
	addr, ok := r.addrs[sym]
	if !ok {
		return Token{}, fmt.Errorf("%w: %q", ErrUnknownToken, symbol)
	}
	if strings.EqualFold(addr, BridgedUSDC) || strings.EqualFold(addr, r.addrs["USDC.E"]) {
		return Token{}, fmt.Errorf("%w: %q", ErrNotTradable, symbol)
	}
	return Token{Symbol: sym, Address: addr}, nil
}

// Quote is the token trades are denominated in.
func (r *Registry) Quote() Token {
	return Token{Symbol: "USDC", Address: r.addrs["USDC"]}
}

// Symbols lists the registry symbols in sorted order.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.addrs))
	for sym := range r.addrs {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Instructions renders the address rules given to the reasoning collaborator.
func (r *Registry) Instructions() []string {
	lines := []string{
		fmt.Sprintf("Use native USDC (address: %s) for every trade. Never use bridged USDC.e.", r.addrs["USDC"]),
	}
	for _, pair := range [][2]string{{"BTC", "WBTC"}, {"ETH", "WETH"}, {"MATIC", "WMATIC"}} {
		if addr, ok := r.addrs[pair[1]]; ok {
			lines = append(lines, fmt.Sprintf("To trade %s, use %s (address: %s).", pair[0], pair[1], addr))
		}
	}
	return lines
}

//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package protocol

import "encoding/json"

// minHistory is the minimum countback the server accepts for create_series;
// requests below this are silently clamped up.
const minHistory = 300

// rpcFrame is the wire shape of every method call: {"m": method, "p": params}
// marshaled with compact separators (encoding/json already omits whitespace
// by default for Marshal, so no extra work is needed to match "no whitespace").
type rpcFrame struct {
	M string        `json:"m"`
	P []interface{} `json:"p"`
}

// buildFrame marshals an rpcFrame and wraps it with the length-prefixed
// envelope, ready to send on the transport.
func buildFrame(method string, params []interface{}) (string, error) {
	body, err := json.Marshal(rpcFrame{M: method, P: params})
	if err != nil {
		return "", err
	}
	return Encode(string(body)), nil
}

// ClampHistory enforces the server's minimum countback of 300 bars.
func ClampHistory(n int) int {
	if n < minHistory {
		return minHistory
	}
	return n
}

// BuildSetAuthToken constructs the set_auth_token method, sent once per
// connection as the first frame.
func BuildSetAuthToken(token string) (string, error) {
	return buildFrame("set_auth_token", []interface{}{token})
}

// BuildChartCreateSession constructs the chart_create_session method sent
// during the handshake.
func BuildChartCreateSession(chartSession string) (string, error) {
	return buildFrame("chart_create_session", []interface{}{chartSession, ""})
}

// BuildQuoteCreateSession constructs the quote_create_session method sent
// during the handshake.
func BuildQuoteCreateSession(quoteSession string) (string, error) {
	return buildFrame("quote_create_session", []interface{}{quoteSession})
}

// BuildQuoteSetFields constructs the quote_set_fields method sent during
// the handshake. The "ch" field is deliberately omitted: some server
// clusters reject it with a critical_error and close the socket.
func BuildQuoteSetFields(quoteSession string) (string, error) {
	return buildFrame("quote_set_fields", []interface{}{quoteSession, "lp", "volume"})
}

// BuildQuoteAddSymbols constructs the quote_add_symbols method, sent once
// per unique symbol the first time it is subscribed.
func BuildQuoteAddSymbols(quoteSession, symbol string) (string, error) {
	return buildFrame("quote_add_symbols", []interface{}{quoteSession, []string{symbol}})
}

// BuildResolveSymbol constructs the resolve_symbol method sent once per
// subscription. alias is the client-chosen chart-session-local name.
func BuildResolveSymbol(chartSession, alias, symbol string) (string, error) {
	descriptor := `={"symbol":"` + symbol + `","adjustment":"splits"}`
	return buildFrame("resolve_symbol", []interface{}{chartSession, alias, descriptor})
}

// BuildCreateSeries constructs the create_series method sent once per
// subscription. history is clamped to the server's minimum countback.
func BuildCreateSeries(chartSession, seriesID, alias, resolution string, history int) (string, error) {
	return buildFrame("create_series", []interface{}{
		chartSession, seriesID, seriesID, alias, resolution, ClampHistory(history), "",
	})
}

// BuildRemoveSeries constructs the remove_series method sent on unsubscribe.
func BuildRemoveSeries(chartSession, seriesID string) (string, error) {
	return buildFrame("remove_series", []interface{}{chartSession, seriesID})
}

// BuildQuoteRemoveSymbols constructs the quote_remove_symbols method sent
// on unsubscribe.
func BuildQuoteRemoveSymbols(quoteSession, symbol string) (string, error) {
	return buildFrame("quote_remove_symbols", []interface{}{quoteSession, symbol})
}

package common

import (
	"testing"
)

func TestParseTicker(t *testing.T) {
	originalDefault := DefaultExchange
	DefaultExchange = "NYSE"
	defer func() { DefaultExchange = originalDefault }()

	tests := []struct {
		input        string
		wantExchange string
		wantCode     string
		wantString   string
		wantEODHD    string
	}{
		// Exchange-qualified format with colon separator
		{"NYSE:AAPL", "NYSE", "AAPL", "NYSE:AAPL", "AAPL.US"},
		{"NASDAQ:MSFT", "NASDAQ", "MSFT", "NASDAQ:MSFT", "MSFT.US"},
		{"ASX:GNP", "ASX", "GNP", "ASX:GNP", "GNP.AU"},

		// Exchange-qualified format with dot separator
		{"NYSE.AAPL", "NYSE", "AAPL", "NYSE:AAPL", "AAPL.US"},
		{"ASX.GNP", "ASX", "GNP", "ASX:GNP", "GNP.AU"},

		// Bare code defaults to NYSE
		{"AAPL", "NYSE", "AAPL", "NYSE:AAPL", "AAPL.US"},

		// Code containing a dot is not split on an unknown prefix
		{"BRK.B", "NYSE", "BRK.B", "NYSE:BRK.B", "BRK.B.US"},

		// Case normalization
		{"nyse:aapl", "NYSE", "AAPL", "NYSE:AAPL", "AAPL.US"},
		{"aapl", "NYSE", "AAPL", "NYSE:AAPL", "AAPL.US"},

		// Whitespace handling
		{"  NYSE:AAPL  ", "NYSE", "AAPL", "NYSE:AAPL", "AAPL.US"},

		// Empty input
		{"", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseTicker(tt.input)

			if result.Exchange != tt.wantExchange {
				t.Errorf("Exchange = %q, want %q", result.Exchange, tt.wantExchange)
			}
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
			if result.String() != tt.wantString {
				t.Errorf("String() = %q, want %q", result.String(), tt.wantString)
			}
			if result.EODHDSymbol() != tt.wantEODHD {
				t.Errorf("EODHDSymbol() = %q, want %q", result.EODHDSymbol(), tt.wantEODHD)
			}
		})
	}
}

func TestTicker_YahooSymbol(t *testing.T) {
	tests := []struct {
		ticker string
		want   string
	}{
		{"NYSE:AAPL", "AAPL"},
		{"NASDAQ:MSFT", "MSFT"},
		{"ASX:GNP", "GNP.AX"},
		{"TSX:SHOP", "SHOP.TO"},
		{"LSE:VOD", "VOD.L"},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			if got := ParseTicker(tt.ticker).YahooSymbol(); got != tt.want {
				t.Errorf("YahooSymbol() = %q, want %q", got, tt.want)
			}
		})
	}
}

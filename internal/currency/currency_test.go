package currency

import (
	"errors"
	"sort"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "usd", want: "USD"},
		{in: "BTC", want: "BTC"},
		{in: " eth ", want: "ETH"},
		{in: "usdt", want: "USDT"},
		{in: "", wantErr: true},
		{in: "X", wantErr: true},
		{in: "TOOLONGCODE", wantErr: true},
		{in: "US1", wantErr: true},
		{in: "us d", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidCode) {
				t.Errorf("Normalize(%q): expected ErrInvalidCode, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConvertible(t *testing.T) {
	for _, code := range []string{"BTC", "ETH", "USDT", "USDC"} {
		if !Convertible(code) {
			t.Errorf("%s must be convertible", code)
		}
	}
	for _, code := range []string{"USD", "JPY", "EUR", "btc"} {
		if Convertible(code) {
			t.Errorf("%s must not be convertible", code)
		}
	}
}

func TestConvertibleSet(t *testing.T) {
	set := ConvertibleSet()
	sort.Strings(set)
	want := []string{"BTC", "ETH", "USDC", "USDT"}
	if len(set) != len(want) {
		t.Fatalf("expected %d codes, got %v", len(want), set)
	}
	for i, c := range want {
		if set[i] != c {
			t.Fatalf("expected %v, got %v", want, set)
		}
	}

	// Mutating the copy must not leak back into the allow-list.
	set[0] = "XXX"
	if !Convertible("BTC") {
		t.Error("allow-list mutated through returned copy")
	}
}

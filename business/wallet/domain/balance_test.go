package domain_test

import (
	"math/big"
	"testing"

	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
	"github.com/kitefoundry/wallet-bridge/internal/apperror"
)

func TestParseWeiHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "one ether", input: "0xde0b6b3a7640000", want: "1000000000000000000"},
		{name: "zero", input: "0x0", want: "0"},
		{name: "small", input: "0x2a", want: "42"},
		{name: "missing prefix", input: "de0b6b3a7640000", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "not hex", input: "0xzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseWeiHex(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if apperror.GetCode(err) != apperror.CodeInvalidFormat {
					t.Errorf("expected INVALID_FORMAT, got %v", apperror.GetCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals uint8
		want     string
	}{
		{name: "one whole unit", raw: "1000000000000000000", decimals: 18, want: "1.0000"},
		{name: "fraction rounds down", raw: "1234449999999999999", decimals: 18, want: "1.2344"},
		{name: "fraction rounds up", raw: "1234550000000000000", decimals: 18, want: "1.2346"},
		{name: "zero", raw: "0", decimals: 18, want: "0.0000"},
		{name: "sub display precision", raw: "1", decimals: 18, want: "0.0000"},
		{name: "six decimal currency", raw: "2500000", decimals: 6, want: "2.5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := new(big.Int).SetString(tt.raw, 10)
			if !ok {
				t.Fatalf("bad test input %q", tt.raw)
			}
			if got := domain.FormatBalance(raw, tt.decimals); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatBalance_Nil(t *testing.T) {
	if got := domain.FormatBalance(nil, 18); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

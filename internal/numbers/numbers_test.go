package numbers

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestExtractInt(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{int64(7), 7, false},
		{42, 42, false},
		{float64(1700000000), 1700000000, false},
		{json.Number("1700000000"), 1700000000, false},
		{json.Number("1.5e3"), 1500, false},
		{"12", 12, false},
		{"", 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := ExtractInt(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractInt(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractInt(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestExtractDecimal(t *testing.T) {
	tests := []struct {
		in      any
		want    string
		wantErr bool
	}{
		{"64123.45000", "64123.45", false},
		{" 0.5 ", "0.5", false},
		{json.Number("-1.25"), "-1.25", false},
		{float64(2.5), "2.5", false},
		{int64(3), "3", false},
		{decimal.RequireFromString("9.99"), "9.99", false},
		{"", "0", true},
		{"abc", "0", true},
		{[]int{1}, "0", true},
	}
	for _, tt := range tests {
		got, err := ExtractDecimal(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractDecimal(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ExtractDecimal(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDecimalOrZero(t *testing.T) {
	if got := DecimalOrZero("not a number"); !got.IsZero() {
		t.Errorf("DecimalOrZero(invalid) = %s, want 0", got)
	}
	if got := DecimalOrZero("1.5"); got.String() != "1.5" {
		t.Errorf("DecimalOrZero(1.5) = %s", got)
	}
}

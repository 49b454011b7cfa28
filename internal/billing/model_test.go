package billing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		series string
		seq    int
		want   string
	}{
		{"B001", 1, "B001-0001"},
		{"B001", 42, "B001-0042"},
		{"A", 9999, "A-9999"},
		{"A", 10000, "A-10000"}, // overflows the pad, stays unique
	}

	for _, c := range cases {
		if got := FormatNumber(c.series, c.seq); got != c.want {
			t.Errorf("FormatNumber(%q, %d) = %q, want %q", c.series, c.seq, got, c.want)
		}
	}
}

func TestParseNumberSeq(t *testing.T) {
	cases := []struct {
		number string
		series string
		want   int
	}{
		{"B001-0001", "B001", 1},
		{"B001-0042", "B001", 42},
		{"", "B001", 0},
		{"C002-0005", "B001", 0},
		{"B001-x", "B001", 0},
	}

	for _, c := range cases {
		if got := ParseNumberSeq(c.number, c.series); got != c.want {
			t.Errorf("ParseNumberSeq(%q, %q) = %d, want %d", c.number, c.series, got, c.want)
		}
	}
}

func TestStatusForBalance(t *testing.T) {
	total := decimal.NewFromInt(100)

	if got := StatusForBalance(decimal.NewFromInt(100), total); got != InvoicePending {
		t.Errorf("untouched balance: got %s, want pending", got)
	}
	if got := StatusForBalance(decimal.NewFromInt(40), total); got != InvoicePartial {
		t.Errorf("partial balance: got %s, want partial", got)
	}
	if got := StatusForBalance(decimal.Zero, total); got != InvoicePaid {
		t.Errorf("zero balance: got %s, want paid", got)
	}
	// Zero-total invoice is immediately paid
	if got := StatusForBalance(decimal.Zero, decimal.Zero); got != InvoicePaid {
		t.Errorf("zero total: got %s, want paid", got)
	}
}

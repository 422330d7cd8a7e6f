package dbstore

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecimalScannerFromFloat(t *testing.T) {
	var dst decimal.Decimal
	scanner := decimalScanner{&dst}

	if err := scanner.Scan(12.5); err != nil {
		t.Fatalf("unexpected error scanning a float64: %v", err)
	}
	if !dst.Equal(decimal.NewFromFloat(12.5)) {
		t.Fatalf("expected 12.5, got %v", dst)
	}
}

func TestDecimalScannerFromNil(t *testing.T) {
	dst := decimal.NewFromInt(99)
	scanner := decimalScanner{&dst}

	if err := scanner.Scan(nil); err != nil {
		t.Fatalf("unexpected error scanning nil: %v", err)
	}
	if !dst.Equal(decimal.Zero) {
		t.Fatalf("expected nil to scan to zero, got %v", dst)
	}
}

func TestDecimalScannerRejectsUnsupportedType(t *testing.T) {
	var dst decimal.Decimal
	scanner := decimalScanner{&dst}

	if err := scanner.Scan("12.5"); err == nil {
		t.Fatal("expected an error scanning an unsupported source type")
	}
}

func TestNullableDecimalValid(t *testing.T) {
	nd := decimal.NewNullDecimal(decimal.NewFromFloat(3.25))
	got := nullableDecimal(nd)
	if got == nil || *got != 3.25 {
		t.Fatalf("expected a pointer to 3.25, got %v", got)
	}
}

func TestNullableDecimalInvalidIsNil(t *testing.T) {
	var nd decimal.NullDecimal
	if got := nullableDecimal(nd); got != nil {
		t.Fatalf("expected nil for an invalid NullDecimal, got %v", got)
	}
}

func TestWrapCommitPassesThroughNil(t *testing.T) {
	if err := wrapCommit("commit session", nil); err != nil {
		t.Fatalf("expected nil error to pass through unwrapped, got %v", err)
	}
}

func TestWrapCommitWrapsNonNil(t *testing.T) {
	cause := errWrapCommitTest{}
	err := wrapCommit("commit session", cause)
	if err == nil {
		t.Fatal("expected a non-nil error to be wrapped")
	}
}

type errWrapCommitTest struct{}

func (errWrapCommitTest) Error() string { return "commit failed" }

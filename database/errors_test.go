package database

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapDBError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapDBError("prices.UpsertBars", cause)

	expected := "database error in prices.UpsertBars: connection refused"
	if err.Error() != expected {
		t.Errorf("Error() = %q, expected %q", err.Error(), expected)
	}

	var dbErr *DBError
	if !errors.As(err, &dbErr) {
		t.Fatal("expected errors.As to match *DBError")
	}
	if dbErr.Operation != "prices.UpsertBars" {
		t.Errorf("Operation = %q, expected %q", dbErr.Operation, "prices.UpsertBars")
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped error to unwrap to its cause")
	}
}

func TestWrapDBErrorNil(t *testing.T) {
	if err := WrapDBError("stocks.ActiveStocks", nil); err != nil {
		t.Errorf("WrapDBError(nil) = %v, expected nil", err)
	}
}

func TestWrapDBErrorSurvivesRewrapping(t *testing.T) {
	// repository errors pass through fmt.Errorf("...: %w") layers in the
	// detector and pipeline; errors.As must still find them
	cause := errors.New("deadlock detected")
	err := fmt.Errorf("indicator lookup for 7203: %w", WrapDBError("indicators.LatestAtOrBefore", cause))

	var dbErr *DBError
	if !errors.As(err, &dbErr) {
		t.Fatal("expected errors.As to match *DBError through the outer wrap")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the chain to unwrap to the root cause")
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"with key", NewNotFoundError("trade plan", int64(42)), "trade plan not found: 42"},
		{"without key", NewNotFoundError("stock", nil), "stock not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Error() = %q, expected %q", tt.err.Error(), tt.expected)
			}
			var nfErr *NotFoundError
			if !errors.As(tt.err, &nfErr) {
				t.Error("expected errors.As to match *NotFoundError")
			}
		})
	}
}

package ai

import (
	"context"
	"errors"
	"testing"

	"meeting-scribe/internal/config"
	"meeting-scribe/internal/infra/logging"
)

func TestKeyring_EmptyPool(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	if _, err := NewKeyring(nil, log); err == nil {
		t.Fatal("expected error for empty pool")
	}
}

func TestKeyring_SucceedsOnNthKeyWithoutTouchingRest(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	kr, err := NewKeyring([]string{"k1", "k2", "k3", "k4"}, log)
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}

	var tried []string
	err = kr.Do(context.Background(), func(_ context.Context, key string) error {
		tried = append(tried, key)
		if key == "k3" {
			return nil
		}
		return ErrQuotaExhausted
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tried) != 3 || tried[0] != "k1" || tried[1] != "k2" || tried[2] != "k3" {
		t.Fatalf("wrong failover order: %v", tried)
	}
}

func TestKeyring_ExhaustionWrapsLastError(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	kr, _ := NewKeyring([]string{"k1", "k2"}, log)

	calls := 0
	err := kr.Do(context.Background(), func(_ context.Context, key string) error {
		calls++
		if key == "k2" {
			return ErrRateLimited
		}
		return ErrPermissionDenied
	})
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}

	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if ex.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", ex.Attempts)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected last error to unwrap, got %v", err)
	}
}

func TestKeyring_FatalErrorAbortsRotation(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	kr, _ := NewKeyring([]string{"k1", "k2", "k3"}, log)

	calls := 0
	err := kr.Do(context.Background(), func(_ context.Context, _ string) error {
		calls++
		return ErrInvalidRequest
	})
	if calls != 1 {
		t.Fatalf("fatal error should not rotate, got %d attempts", calls)
	}
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestKeyring_CancelledContextStopsRotation(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	kr, _ := NewKeyring([]string{"k1", "k2"}, log)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := kr.Do(ctx, func(_ context.Context, _ string) error {
		calls++
		cancel()
		return ErrOverloaded
	})
	if calls != 1 {
		t.Fatalf("expected 1 attempt after cancel, got %d", calls)
	}
	if !errors.Is(err, ErrOverloaded) {
		t.Fatalf("expected the underlying error back, got %v", err)
	}
}

func TestRotatable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrInvalidRequest, false},
		{ErrUnsupported, false},
		{ErrPermissionDenied, true},
		{ErrQuotaExhausted, true},
		{ErrRateLimited, true},
		{ErrOverloaded, true},
		{errors.New("transport broke"), true},
	}
	for _, c := range cases {
		if got := Rotatable(c.err); got != c.want {
			t.Errorf("Rotatable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

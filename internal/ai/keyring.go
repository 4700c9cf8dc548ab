package ai

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"meeting-scribe/internal/infra/metrics"
)

// Keyring iterates an ordered, immutable pool of API credentials, applying
// each to an operation until one succeeds or the pool is exhausted.
// Iteration order is declaration order and is the failover order.
type Keyring struct {
	keys []string
	log  *zerolog.Logger
}

func NewKeyring(keys []string, logger *zerolog.Logger) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, errors.New("keyring: empty credential pool")
	}
	l := logger.With().Str("component", "Keyring").Logger()
	return &Keyring{keys: keys, log: &l}, nil
}

func (k *Keyring) Size() int { return len(k.keys) }

// Do invokes op with each credential in order. Rotatable failures move on
// to the next credential; fatal failures abort immediately. Exhausting the
// pool returns *ExhaustedError wrapping the last underlying error.
func (k *Keyring) Do(ctx context.Context, op func(ctx context.Context, key string) error) error {
	var last error
	for i, key := range k.keys {
		err := op(ctx, key)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if !Rotatable(err) {
			return err
		}
		metrics.IncKeyRotation()
		k.log.Warn().Err(err).Int("key_index", i).Msg("credential failed, rotating")
		last = err
	}
	metrics.IncKeyPoolExhausted()
	return &ExhaustedError{Attempts: len(k.keys), Last: last}
}

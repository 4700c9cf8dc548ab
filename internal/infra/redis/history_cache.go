package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meeting-scribe/internal/domain/model"
)

// HistoryCache keeps the recent conversation window per meeting so the
// chat path does not hit Postgres on every question. Values are decrypted
// turns; the TTL bounds staleness after out-of-band writes.
type HistoryCache struct {
	cli RedisClient
	ttl time.Duration
}

func NewHistoryCache(cli RedisClient, ttl time.Duration) *HistoryCache {
	return &HistoryCache{cli: cli, ttl: ttl}
}

func key(meetingID string) string { return fmt.Sprintf("chat:history:%s", meetingID) }

// Get returns the last n cached turns, oldest first. A cached window
// shorter than n is a miss: it may have been written by a smaller read
// and the database could hold rows the cache never saw.
func (c *HistoryCache) Get(ctx context.Context, meetingID string, n int) ([]*model.ConversationTurn, bool) {
	raw, err := c.cli.Get(ctx, key(meetingID))
	if err != nil {
		return nil, false
	}
	var turns []*model.ConversationTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, false
	}
	if n <= 0 || len(turns) < n {
		return nil, false
	}
	return turns[len(turns)-n:], true
}

func (c *HistoryCache) Store(ctx context.Context, meetingID string, turns []*model.ConversationTurn) error {
	b, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return c.cli.Set(ctx, key(meetingID), string(b), c.ttl)
}

func (c *HistoryCache) Invalidate(ctx context.Context, meetingID string) error {
	return c.cli.Del(ctx, key(meetingID))
}

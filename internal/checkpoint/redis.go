package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/domain"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/events"
)

const (
	keyPrefix      = "drivethru:"
	sessionIndex   = keyPrefix + "sessions"
	eventSequence  = keyPrefix + "event_seq"
	maxEventsFetch = 1000
)

func sessionKey(id string) string { return keyPrefix + "session:" + id }
func summaryKey(id string) string { return keyPrefix + "summary:" + id }
func eventsKey(id string) string  { return keyPrefix + "events:" + id }

// RedisStore keeps sessions as JSON strings with a sliding TTL and the
// event log as a list per session. A sorted set indexes sessions by
// update time.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, ttl), nil
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (r *RedisStore) Save(ctx context.Context, conv *conversation.Context, evts ...events.Record) error {
	state, err := encode(conv)
	if err != nil {
		return err
	}
	sum, err := json.Marshal(summary(conv))
	if err != nil {
		return err
	}
	encoded := make([]any, 0, len(evts))
	for _, e := range evts {
		payload, err := events.Marshal(e.Payload)
		if err != nil {
			return err
		}
		id, err := r.client.Incr(ctx, eventSequence).Result()
		if err != nil {
			return fmt.Errorf("allocate event id: %w", err)
		}
		data, err := json.Marshal(domain.Event{
			ID:        id,
			TS:        r.now().UTC().Format(time.RFC3339),
			Type:      e.Type,
			SessionID: conv.SessionID,
			Payload:   payload,
		})
		if err != nil {
			return err
		}
		encoded = append(encoded, data)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(conv.SessionID), state, r.ttl)
		p.Set(ctx, summaryKey(conv.SessionID), sum, r.ttl)
		if len(encoded) > 0 {
			p.RPush(ctx, eventsKey(conv.SessionID), encoded...)
		}
		if r.ttl > 0 {
			p.Expire(ctx, eventsKey(conv.SessionID), r.ttl)
		}
		p.ZAdd(ctx, sessionIndex, redis.Z{Score: float64(conv.UpdatedAt.UnixNano()), Member: conv.SessionID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", conv.SessionID, err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, sessionID string) (*conversation.Context, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// List skips index members whose session has expired and prunes them.
func (r *RedisStore) List(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := r.client.ZRevRange(ctx, sessionIndex, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	out := []domain.Session{}
	for _, id := range ids {
		data, err := r.client.Get(ctx, summaryKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			r.client.ZRem(ctx, sessionIndex, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		var s domain.Session
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode session summary %s: %w", id, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	n, err := r.client.Del(ctx, sessionKey(sessionID), summaryKey(sessionID), eventsKey(sessionID)).Result()
	if err != nil {
		return err
	}
	r.client.ZRem(ctx, sessionIndex, sessionID)
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}

func (r *RedisStore) Events(ctx context.Context, sessionID string, after int64, limit int) ([]domain.Event, error) {
	n, err := r.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	raw, err := r.client.LRange(ctx, eventsKey(sessionID), 0, maxEventsFetch-1).Result()
	if err != nil {
		return nil, err
	}
	all := make([]domain.Event, 0, len(raw))
	for _, item := range raw {
		var e domain.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		all = append(all, e)
	}
	return pageAfter(all, after, limit), nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

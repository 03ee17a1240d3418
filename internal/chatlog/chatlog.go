// Package chatlog keeps per-session assistant chat transcripts in Redis
// lists, one list per session keyed chat:{session}.
package chatlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Turn is one chat message in a session.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Log struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Log { return &Log{rdb: rdb} }

func key(session string) string { return "chat:" + session }

// Append pushes one turn onto the session's transcript.
func (l *Log) Append(ctx context.Context, session, role, text string) error {
	b, err := json.Marshal(Turn{Role: role, Text: text, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	if err := l.rdb.RPush(ctx, key(session), b).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// History returns up to limit of the session's most recent turns,
// oldest-first. limit <= 0 returns the whole transcript.
func (l *Log) History(ctx context.Context, session string, limit int) ([]Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := l.rdb.LRange(ctx, key(session), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange: %w", err)
	}
	turns := make([]Turn, 0, len(raw))
	for _, r := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Clear drops the session's transcript and reports whether one existed.
func (l *Log) Clear(ctx context.Context, session string) (bool, error) {
	n, err := l.rdb.Del(ctx, key(session)).Result()
	if err != nil {
		return false, fmt.Errorf("del: %w", err)
	}
	return n > 0, nil
}

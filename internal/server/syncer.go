package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/composer/internal/memory"
	"github.com/mohammad-safakhou/composer/internal/store"
)

// Syncer periodically pushes unsynced messages to the memory API. A Redis
// lock keeps concurrent replicas from double-pushing the same batch.
type Syncer struct {
	Store    *store.Store
	Memory   *memory.Client
	Rdb      *redis.Client
	CronSpec string
	Batch    int
	Stop     chan struct{}
	Logger   *log.Logger

	lastRun time.Time
}

const syncLockKey = "composer:sync:lock"

func (s *Syncer) logger() *log.Logger {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SYNC] ", log.LstdFlags)
	}
	return s.Logger
}

// Start launches the sync loop. It checks every minute whether the cron
// schedule is due.
func (s *Syncer) Start() {
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				if !s.due() {
					continue
				}
				s.lastRun = time.Now()
				s.runOnce(context.Background())
			}
		}
	}()
}

// due determines whether the schedule fired since the last run. Supports
// "@hourly", "@daily" and standard 5-field cron expressions.
func (s *Syncer) due() bool {
	now := time.Now()
	last := s.lastRun
	switch s.CronSpec {
	case "@hourly", "":
		return last.IsZero() || now.Sub(last) >= time.Hour
	case "@daily":
		return last.IsZero() || now.Sub(last) >= 24*time.Hour
	default:
		expr, err := cronexpr.Parse(s.CronSpec)
		if err != nil {
			return last.IsZero() || now.Sub(last) >= time.Hour
		}
		if last.IsZero() {
			return true
		}
		return !expr.Next(last).After(now)
	}
}

// runOnce pushes one batch. Messages that fail stay unsynced and are
// retried on the next run.
func (s *Syncer) runOnce(ctx context.Context) {
	if !s.Memory.Configured() {
		return
	}
	if s.Rdb != nil {
		ok, err := s.Rdb.SetNX(ctx, syncLockKey, "1", 2*time.Minute).Result()
		if err != nil || !ok {
			return
		}
		defer s.Rdb.Del(ctx, syncLockKey)
	}

	batch := s.Batch
	if batch <= 0 {
		batch = 50
	}
	msgs, err := s.Store.ListUnsyncedMessages(ctx, batch)
	if err != nil {
		memorySyncFailures.Inc()
		s.logger().Printf("list unsynced messages: %v", err)
		return
	}
	if len(msgs) == 0 {
		return
	}

	var synced []string
	for _, m := range msgs {
		if _, err := s.Memory.StoreMessage(ctx, m.Platform, m.Recipient, m.Text, m.Outgoing, m.CreatedAt); err != nil {
			memorySyncFailures.Inc()
			s.logger().Printf("push message %s: %v", m.ID, err)
			break
		}
		synced = append(synced, m.ID)
	}
	if len(synced) == 0 {
		return
	}
	if err := s.Store.MarkMessagesSynced(ctx, synced); err != nil {
		memorySyncFailures.Inc()
		s.logger().Printf("mark synced: %v", err)
		return
	}
	memorySyncedMessages.Add(float64(len(synced)))
	s.logger().Printf("pushed %d messages to memory API", len(synced))
}

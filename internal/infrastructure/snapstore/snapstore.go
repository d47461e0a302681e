// Package snapstore archives periodic process-table snapshots in Redis.
//
// Every kernel boot gets its own list, pdxkernel:snapshots:<boot id>,
// holding JSON records newest first and trimmed to a fixed length.
package snapstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edirooss/pdxkernel/internal/kernel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "pdxkernel:snapshots:"

// Record is one archived snapshot.
type Record struct {
	BootID string            `json:"boot_id"`
	Tick   uint64            `json:"tick"`
	Taken  time.Time         `json:"taken"`
	Procs  []kernel.ProcInfo `json:"procs"`
}

// Source is the kernel as seen by the recorder.
type Source interface {
	BootID() string
	Ticks() uint64
	NProc() int
	Snapshot(max int) ([]kernel.ProcInfo, error)
}

// Store appends snapshots of one boot to a capped Redis list.
type Store struct {
	log  *zap.Logger
	rdb  redis.Cmdable
	key  string
	keep int64
}

// New returns a store for bootID keeping at most keep records.
func New(log *zap.Logger, rdb redis.Cmdable, bootID string, keep int64) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("nil redis client")
	}
	if bootID == "" {
		return nil, errors.New("empty boot id")
	}
	if keep < 1 {
		return nil, fmt.Errorf("keep must be positive, got %d", keep)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		log:  log.Named("snapstore"),
		rdb:  rdb,
		key:  keyPrefix + bootID,
		keep: keep,
	}, nil
}

// Key returns the Redis list the store writes to.
func (s *Store) Key() string { return s.key }

// Save pushes rec and trims the list in one round trip.
func (s *Store) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, string(data))
		pipe.LTrim(ctx, s.key, 0, s.keep-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Recent returns up to n records, newest first. Undecodable entries are
// skipped.
func (s *Store) Recent(ctx context.Context, n int64) ([]Record, error) {
	if n < 1 {
		return nil, nil
	}
	raws, err := s.rdb.LRange(ctx, s.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", s.key, err)
	}

	out := make([]Record, 0, len(raws))
	for _, raw := range raws {
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.log.Warn("bad snapshot json", zap.String("key", s.key), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Len returns the number of archived records.
func (s *Store) Len(ctx context.Context) (int64, error) {
	n, err := s.rdb.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", s.key, err)
	}
	return n, nil
}

// Take snapshots src and saves the result.
func (s *Store) Take(ctx context.Context, src Source) error {
	procs, err := src.Snapshot(src.NProc())
	if err != nil {
		return err
	}
	return s.Save(ctx, Record{
		BootID: src.BootID(),
		Tick:   src.Ticks(),
		Taken:  time.Now().UTC(),
		Procs:  procs,
	})
}

// Record takes a snapshot every interval until ctx is done. Failed saves
// are logged and retried on the next interval.
func (s *Store) Record(ctx context.Context, src Source, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	s.log.Info("recording snapshots", zap.String("key", s.key), zap.Duration("every", every))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Take(ctx, src); err != nil && ctx.Err() == nil {
				s.log.Warn("snapshot failed", zap.Error(err))
			}
		}
	}
}

package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeSweeper struct {
	mu      sync.Mutex
	expires int
	purges  int
	cutoffs []time.Time
}

func (f *fakeSweeper) ExpireOverdue(_ context.Context, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires++
	return 1, nil
}

func (f *fakeSweeper) PurgeOld(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges++
	f.cutoffs = append(f.cutoffs, cutoff)
	return 2, nil
}

func (f *fakeSweeper) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expires, f.purges
}

func TestStartShareCleaner_RunsBothSweeps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := &fakeSweeper{}
	StartShareCleaner(ctx, sweeper, 10*time.Millisecond, time.Hour, zap.NewNop())

	deadline := time.After(2 * time.Second)
	for {
		expires, purges := sweeper.counts()
		if expires >= 2 && purges >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("cleaner ran expire=%d purge=%d sweeps; want at least 2 each", expires, purges)
		case <-time.After(10 * time.Millisecond):
		}
	}

	sweeper.mu.Lock()
	cutoff := sweeper.cutoffs[0]
	sweeper.mu.Unlock()
	if since := time.Since(cutoff); since < 59*time.Minute || since > 61*time.Minute {
		t.Errorf("purge cutoff %v ago; want about the retention window (1h)", since)
	}
}

func TestStartShareCleaner_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	sweeper := &fakeSweeper{}
	StartShareCleaner(ctx, sweeper, 5*time.Millisecond, time.Hour, zap.NewNop())

	time.Sleep(30 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	before, _ := sweeper.counts()
	time.Sleep(30 * time.Millisecond)
	after, _ := sweeper.counts()
	if after != before {
		t.Errorf("cleaner still sweeping after cancel: %d -> %d", before, after)
	}
}

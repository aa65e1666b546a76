//go:build !integration

package sched

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestDailyAt(t *testing.T) {
	next := DailyAt(12, 0)

	t.Run("should pick today when the slot is still ahead", func(t *testing.T) {
		now := date(2026, time.March, 10, 9, 30)
		if got, want := next(now), date(2026, time.March, 10, 12, 0); !got.Equal(want) {
			t.Errorf("next = %v, want %v", got, want)
		}
	})

	t.Run("should roll to tomorrow when the slot has passed", func(t *testing.T) {
		now := date(2026, time.March, 10, 12, 0)
		if got, want := next(now), date(2026, time.March, 11, 12, 0); !got.Equal(want) {
			t.Errorf("next = %v, want %v", got, want)
		}
	})
}

func TestWeeklyAt(t *testing.T) {
	next := WeeklyAt(time.Monday, 9)

	t.Run("should find the coming Monday", func(t *testing.T) {
		// 2026-03-12 is a Thursday.
		now := date(2026, time.March, 12, 15, 0)
		got := next(now)
		want := date(2026, time.March, 16, 9, 0)
		if !got.Equal(want) {
			t.Errorf("next = %v (%v), want %v", got, got.Weekday(), want)
		}
	})

	t.Run("should skip a whole week when fired exactly on the slot", func(t *testing.T) {
		now := date(2026, time.March, 16, 9, 0) // a Monday
		got := next(now)
		want := date(2026, time.March, 23, 9, 0)
		if !got.Equal(want) {
			t.Errorf("next = %v, want %v", got, want)
		}
	})
}

func TestMonthlyAt(t *testing.T) {
	next := MonthlyAt(1, 9)

	t.Run("should roll into the next month once day 1 has passed", func(t *testing.T) {
		now := date(2026, time.March, 10, 0, 0)
		if got, want := next(now), date(2026, time.April, 1, 9, 0); !got.Equal(want) {
			t.Errorf("next = %v, want %v", got, want)
		}
	})

	t.Run("should handle the December wraparound", func(t *testing.T) {
		now := date(2026, time.December, 2, 0, 0)
		if got, want := next(now), date(2027, time.January, 1, 9, 0); !got.Equal(want) {
			t.Errorf("next = %v, want %v", got, want)
		}
	})
}

func TestScheduler_FireGuard(t *testing.T) {
	logger := zerolog.New(io.Discard)
	s := New(&logger)

	var mu sync.Mutex
	runs := 0
	block := make(chan struct{})
	j := &job{
		name: "slow",
		run: func(ctx context.Context) error {
			mu.Lock()
			runs++
			mu.Unlock()
			<-block
			return nil
		},
	}

	go s.fire(context.Background(), j)
	// Give the first run time to take the guard, then try to overlap.
	time.Sleep(20 * time.Millisecond)
	s.fire(context.Background(), j)
	close(block)

	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Errorf("runs = %d, want 1 (second fire must be skipped)", runs)
	}
}

package server

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ippgi/ippgi-prices/internal/shared/logger"
)

type fakeRescheduler struct {
	mu          sync.Mutex
	hours       []int
	rescheduled [][]int
}

func (f *fakeRescheduler) Hours() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hours
}

func (f *fakeRescheduler) Reschedule(hours []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hours = hours
	f.rescheduled = append(f.rescheduled, hours)
	return nil
}

func (f *fakeRescheduler) calls() [][]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]int(nil), f.rescheduled...)
}

func runReload(t *testing.T, sched *fakeRescheduler, loads []func() ([]int, error)) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	signals := make(chan os.Signal)
	done := make(chan struct{})

	i := 0
	load := func() ([]int, error) {
		fn := loads[i]
		i++
		return fn()
	}
	go func() {
		reloadSchedule(ctx, signals, sched, load, logger.NewNopLogger())
		close(done)
	}()

	// unbuffered sends return only once the previous reload has finished
	for range loads {
		signals <- syscall.SIGHUP
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload loop did not stop")
	}
}

func hours(h ...int) func() ([]int, error) {
	return func() ([]int, error) { return h, nil }
}

func TestReloadSchedule_ReschedulesChangedHours(t *testing.T) {
	sched := &fakeRescheduler{hours: []int{9, 10, 11}}

	runReload(t, sched, []func() ([]int, error){hours(14, 10, 10)})

	assert.Equal(t, [][]int{{10, 14}}, sched.calls())
}

func TestReloadSchedule_KeepsScheduleOnBadInput(t *testing.T) {
	sched := &fakeRescheduler{hours: []int{9, 10}}

	runReload(t, sched, []func() ([]int, error){
		hours(10, 9),
		hours(25),
		func() ([]int, error) { return nil, errors.New("config unreadable") },
		hours(),
	})

	assert.Empty(t, sched.calls())
	assert.Equal(t, []int{9, 10}, sched.Hours())
}

func TestReloadSchedule_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	done := make(chan struct{})
	go func() {
		reloadSchedule(ctx, make(chan os.Signal), &fakeRescheduler{}, hours(9), logger.NewNopLogger())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload loop ignored cancelled context")
	}
}

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/forecast-screen/internal/prefs"
	"github.com/i474232898/forecast-screen/internal/weather"
)

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs every pending timer as if its delay had elapsed.
func (c *fakeClock) fire() {
	for _, t := range c.pending() {
		c.mu.Lock()
		t.fired = true
		c.mu.Unlock()
		t.f()
	}
}

// fakeClient serves canned data and records calls. A gate registered for a
// query or city blocks that call until the gate is closed.
type fakeClient struct {
	mu          sync.Mutex
	searches    []string
	forecasts   []string
	days        []int
	suggestions map[string][]weather.LocationSuggestion
	snapshots   map[string]weather.ForecastSnapshot
	searchErr   error
	forecastErr error
	cityErrs    map[string]error // per-city forecast failures
	gates       map[string]chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		suggestions: make(map[string][]weather.LocationSuggestion),
		snapshots:   make(map[string]weather.ForecastSnapshot),
		cityErrs:    make(map[string]error),
		gates:       make(map[string]chan struct{}),
	}
}

func (f *fakeClient) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeClient) wait(ctx context.Context, key string) {
	f.mu.Lock()
	ch := f.gates[key]
	f.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (f *fakeClient) Search(ctx context.Context, query string) ([]weather.LocationSuggestion, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	f.mu.Unlock()

	f.wait(ctx, query)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.suggestions[query], nil
}

func (f *fakeClient) Forecast(ctx context.Context, city string, days int) (weather.ForecastSnapshot, error) {
	f.mu.Lock()
	f.forecasts = append(f.forecasts, city)
	f.days = append(f.days, days)
	f.mu.Unlock()

	f.wait(ctx, city)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forecastErr != nil {
		return weather.ForecastSnapshot{}, f.forecastErr
	}
	if err := f.cityErrs[city]; err != nil {
		return weather.ForecastSnapshot{}, err
	}
	return f.snapshots[city].Clone(), nil
}

func (f *fakeClient) searchCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func (f *fakeClient) forecastCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.forecasts...)
}

// recordingStore wraps a MemoryStore and records writes.
type recordingStore struct {
	*prefs.MemoryStore

	mu     sync.Mutex
	sets   []string
	getErr error
	onSet  func(value string)
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: prefs.NewMemoryStore()}
}

func (s *recordingStore) Get(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *recordingStore) Set(ctx context.Context, key, value string) error {
	if s.onSet != nil {
		s.onSet(value)
	}
	s.mu.Lock()
	s.sets = append(s.sets, value)
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *recordingStore) setCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sets...)
}

var errNetwork = &weather.FetchError{Op: "forecast", Kind: weather.KindTransport, Err: errors.New("connection refused")}

// newTestController wires a controller to fakes and a manual clock.
func newTestController(client *fakeClient, store prefs.Store) (*Controller, *fakeClock) {
	c := New(client, store, Config{})
	clock := &fakeClock{}
	c.search.after = clock.AfterFunc
	return c, clock
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

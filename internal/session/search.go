package session

import (
	"context"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/i474232898/forecast-screen/internal/weather"
)

// minQueryRunes is the shortest query (in code points) that reaches the network.
const minQueryRunes = 3

// Searcher is the part of weather.Client the search pipeline needs.
type Searcher interface {
	Search(ctx context.Context, query string) ([]weather.LocationSuggestion, error)
}

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// SearchController debounces query changes and turns the latest query into a
// suggestion list. Only the response to the most recently dispatched request
// is delivered.
type SearchController struct {
	client   Searcher
	debounce time.Duration
	after    afterFunc
	deliver  func([]weather.LocationSuggestion)
	ctx      context.Context

	mu      sync.Mutex
	pending timer
	armed   uint64 // bumped on every re-arm or cancel
	seq     uint64 // latest dispatched request
	query   string
	closed  bool

	wg sync.WaitGroup
}

// NewSearchController creates a controller. deliver receives accepted results
// (an empty slice for failures) and must not call back into the controller.
func NewSearchController(ctx context.Context, client Searcher, debounce time.Duration, deliver func([]weather.LocationSuggestion)) *SearchController {
	return &SearchController{
		client:   client,
		debounce: debounce,
		after:    realAfterFunc,
		deliver:  deliver,
		ctx:      ctx,
	}
}

// QueryChanged records query and restarts the debounce timer. Evaluation
// happens on the trailing edge, debounce after the last call.
func (s *SearchController) QueryChanged(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.query = query
	if s.pending != nil {
		s.pending.Stop()
	}
	s.armed++
	armed := s.armed
	s.pending = s.after(s.debounce, func() { s.evaluate(armed) })
}

// Cancel drops the pending evaluation and any response still in flight.
func (s *SearchController) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *SearchController) cancelLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.armed++
	s.seq++
}

// Wait blocks until dispatched searches have completed.
func (s *SearchController) Wait() {
	s.wg.Wait()
}

// Close cancels pending work and waits for in-flight searches.
func (s *SearchController) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancelLocked()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *SearchController) evaluate(armed uint64) {
	s.mu.Lock()
	// A timer that lost the race with Stop may still run; ignore it.
	if s.closed || armed != s.armed {
		s.mu.Unlock()
		return
	}
	s.pending = nil

	query := s.query
	if utf8.RuneCountInString(query) < minQueryRunes {
		s.mu.Unlock()
		log.Printf("DEBUG: search query %q too short; keeping current suggestions", query)
		return
	}

	s.seq++
	seq := s.seq
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.dispatch(seq, query)
	}()
}

func (s *SearchController) dispatch(seq uint64, query string) {
	results, err := s.client.Search(s.ctx, query)
	if err != nil {
		log.Printf("ERROR: location search for %q failed (%s): %v", query, weather.KindOf(err), err)
		results = nil
	}
	if results == nil {
		results = []weather.LocationSuggestion{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		log.Printf("DEBUG: dropping superseded search response for %q", query)
		return
	}
	s.deliver(results)
}

// Package session implements the forecast screen's interaction core: the
// loading/displaying state machine, the search panel and the debounced
// location autocomplete that feeds it.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/i474232898/forecast-screen/internal/prefs"
	"github.com/i474232898/forecast-screen/internal/weather"
)

const (
	DefaultCity         = "Manila"
	DefaultForecastDays = 7
	DefaultDebounce     = 1200 * time.Millisecond
)

// Config tunes a Controller. Zero fields take the package defaults.
type Config struct {
	DefaultCity  string
	ForecastDays int
	Debounce     time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultCity == "" {
		c.DefaultCity = DefaultCity
	}
	if c.ForecastDays <= 0 {
		c.ForecastDays = DefaultForecastDays
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	return c
}

// Controller owns the state of one forecast screen. All mutation goes through
// its methods; readers get copies via State and are told about changes on
// Updates.
//
// Forecast fetches are tagged with a generation number and only the latest
// dispatched fetch may update the screen or the stored city.
type Controller struct {
	client weather.Client
	store  prefs.Store
	cfg    Config
	search *SearchController

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	updates chan struct{}

	mu      sync.Mutex
	state   State
	gen     uint64
	started bool
	closed  bool

	persistMu    sync.Mutex
	persistedGen uint64 // guarded by persistMu
}

// New creates a Controller in the loading state. Call Start to load the
// initial forecast.
func New(client weather.Client, store prefs.Store, cfg Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		client:  client,
		store:   store,
		cfg:     cfg.withDefaults(),
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan struct{}, 1),
		state:   State{Content: ContentLoading},
	}
	c.search = NewSearchController(ctx, client, c.cfg.Debounce, c.applySuggestions)
	return c
}

// Start loads the last selected city (or the default one) and fetches its
// forecast in the background. Only the first call has an effect.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.state.Content = ContentLoading
	c.gen++
	gen := c.gen
	c.goTracked(func() {
		city := c.lastCity()

		c.mu.Lock()
		if gen == c.gen {
			c.state.City = city
		}
		c.mu.Unlock()

		c.fetch(gen, city, false)
	})
	c.mu.Unlock()
	c.notify()
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Updates signals state changes. Signals coalesce: a receiver should re-read
// State after each one.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

// OpenSearch shows the search panel with an empty suggestion list.
func (c *Controller) OpenSearch() {
	c.setSearchOpen(true)
}

// CloseSearch hides the search panel and drops pending search work.
func (c *Controller) CloseSearch() {
	c.setSearchOpen(false)
}

// ToggleSearch flips the search panel.
func (c *Controller) ToggleSearch() {
	c.mu.Lock()
	open := !c.state.SearchOpen
	c.mu.Unlock()
	c.setSearchOpen(open)
}

func (c *Controller) setSearchOpen(open bool) {
	c.mu.Lock()
	if c.state.SearchOpen == open {
		c.mu.Unlock()
		return
	}
	c.state.SearchOpen = open
	c.state.Suggestions = nil
	c.mu.Unlock()

	// Never call into the search controller while holding c.mu: it calls
	// back into applySuggestions under its own lock.
	if !open {
		c.search.Cancel()
	}
	c.notify()
}

// QueryChanged forwards the search box contents to the debounced search.
// Input is ignored while the panel is closed.
func (c *Controller) QueryChanged(query string) {
	c.mu.Lock()
	open := c.state.SearchOpen
	c.mu.Unlock()

	if !open {
		log.Printf("DEBUG: ignoring query %q while search panel is closed", query)
		return
	}
	c.search.QueryChanged(query)
}

// Select switches the screen to loc. Suggestions without a name are ignored.
// On a successful fetch the city is remembered for the next session.
func (c *Controller) Select(loc weather.LocationSuggestion) {
	if loc.Name == "" {
		log.Printf("DEBUG: ignoring selection without a name (id=%d)", loc.ID)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.Content = ContentLoading
	c.state.Snapshot = weather.ForecastSnapshot{}
	c.state.LastError = weather.KindNone
	c.state.City = loc.Name
	c.state.Suggestions = nil
	c.state.SearchOpen = false
	c.gen++
	gen := c.gen
	c.goTracked(func() {
		c.fetch(gen, loc.Name, true)
	})
	c.mu.Unlock()

	c.search.Cancel()
	c.notify()
}

// Wait blocks until all background fetches and searches have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
	c.search.Wait()
}

// Close stops pending timers, cancels in-flight requests and waits for them.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.search.Close()
	c.wg.Wait()
}

// goTracked runs f in the background. Callers hold c.mu and have checked
// c.closed, so Close never races the Add.
func (c *Controller) goTracked(f func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		f()
	}()
}

func (c *Controller) lastCity() string {
	city, err := c.store.Get(c.ctx, prefs.LastCityKey)
	switch {
	case errors.Is(err, prefs.ErrNotFound) || (err == nil && city == ""):
		log.Printf("INFO: no stored city; using default %q", c.cfg.DefaultCity)
		return c.cfg.DefaultCity
	case err != nil:
		log.Printf("ERROR: reading last city failed, using default %q: %v", c.cfg.DefaultCity, err)
		return c.cfg.DefaultCity
	default:
		return city
	}
}

// fetch loads the forecast for city and applies it if gen is still current.
// Every outcome ends in ContentDisplaying; a failure displays the empty snapshot.
func (c *Controller) fetch(gen uint64, city string, persist bool) {
	log.Printf("DEBUG: fetching %d-day forecast for %q (gen %d)", c.cfg.ForecastDays, city, gen)

	snap, err := c.client.Forecast(c.ctx, city, c.cfg.ForecastDays)
	if err != nil {
		log.Printf("ERROR: forecast for %q failed (%s): %v", city, weather.KindOf(err), err)
		snap = weather.ForecastSnapshot{}
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		log.Printf("DEBUG: dropping stale forecast for %q (gen %d)", city, gen)
		return
	}
	c.state.Content = ContentDisplaying
	c.state.Snapshot = snap
	c.state.LastError = weather.KindOf(err)
	c.mu.Unlock()
	c.notify()

	if !persist || err != nil {
		return
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	// A newer selection may already have been written while this one waited.
	if gen < c.persistedGen {
		log.Printf("DEBUG: not storing %q (gen %d); gen %d already stored", city, gen, c.persistedGen)
		return
	}
	c.persistedGen = gen
	if err := c.store.Set(c.ctx, prefs.LastCityKey, city); err != nil {
		log.Printf("ERROR: storing last city %q failed: %v", city, err)
	}
}

func (c *Controller) applySuggestions(results []weather.LocationSuggestion) {
	c.mu.Lock()
	if !c.state.SearchOpen {
		c.mu.Unlock()
		return
	}
	c.state.Suggestions = append([]weather.LocationSuggestion{}, results...)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

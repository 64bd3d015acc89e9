package httpapi

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/forecast-screen/internal/prefs"
	"github.com/i474232898/forecast-screen/internal/session"
	"github.com/i474232898/forecast-screen/internal/weather"
)

var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	ctrl     *session.Controller
	lastSeen time.Time
}

// Registry owns the live sessions. All sessions share one weather client
// and one preference store.
type Registry struct {
	client weather.Client
	store  prefs.Store
	cfg    session.Config
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewRegistry(client weather.Client, store prefs.Store, cfg session.Config) *Registry {
	return &Registry{
		client:   client,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create starts a new session and returns its id.
func (r *Registry) Create() (string, *session.Controller) {
	id := uuid.NewString()
	ctrl := session.New(r.client, r.store, r.cfg)

	r.mu.Lock()
	r.sessions[id] = &entry{ctrl: ctrl, lastSeen: r.now()}
	r.mu.Unlock()

	ctrl.Start()
	log.Printf("INFO: session %s created", id)
	return id, ctrl
}

// Get returns the session and marks it as used.
func (r *Registry) Get(id string) (*session.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = r.now()
	return e.ctrl, nil
}

// Delete closes and forgets the session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.ctrl.Close()
	log.Printf("INFO: session %s closed", id)
	return nil
}

// Sweep closes sessions unused for longer than maxIdle.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	var idle []*session.Controller
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.ctrl)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, ctrl := range idle {
		ctrl.Close()
	}
	return len(idle)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range all {
		e.ctrl.Close()
	}
}

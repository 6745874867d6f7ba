package registration

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/student"
)

var ErrVisitNotFound = errors.New("visit not found or expired")

// defaultVisitTTL bounds how long an idle visit keeps its Flow alive.
const defaultVisitTTL = 30 * time.Minute

type (
	// Registry tracks one Flow per portal visit. Visits are identified by an
	// opaque id handed to the client on open; idle visits are evicted and
	// their flows torn down so no stale timer outlives the visitor.
	Registry struct {
		students *student.Service
		meetings *meeting.Service
		logger   core.Logger
		conf     *core.Config

		mu     sync.Mutex
		visits map[string]*visit
		ttl    time.Duration
		done   chan struct{}
	}

	visit struct {
		flow     *Flow
		lastSeen time.Time
	}
)

func NewRegistry(students *student.Service, meetings *meeting.Service, logger core.Logger, conf *core.Config) *Registry {
	r := &Registry{
		students: students,
		meetings: meetings,
		logger:   logger,
		conf:     conf,
		visits:   make(map[string]*visit),
		ttl:      defaultVisitTTL,
		done:     make(chan struct{}),
	}
	go r.sweep()
	return r
}

// Open starts a new visit for the given session and returns its id.
func (r *Registry) Open(session string) (string, *Flow, error) {
	flow, err := NewFlow(session, r.students, r.meetings, r.logger, r.conf)
	if err != nil {
		return "", nil, err
	}

	id := uuid.New().String()
	r.mu.Lock()
	r.visits[id] = &visit{flow: flow, lastSeen: time.Now()}
	r.mu.Unlock()
	return id, flow, nil
}

// Get returns the visit's flow and marks it active.
func (r *Registry) Get(id string) (*Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if !ok {
		return nil, ErrVisitNotFound
	}
	v.lastSeen = time.Now()
	return v.flow, nil
}

// Close ends a visit, tearing its flow down.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	v, ok := r.visits[id]
	delete(r.visits, id)
	r.mu.Unlock()
	if ok {
		v.flow.Close()
	}
}

// Shutdown tears down every visit and stops the janitor.
func (r *Registry) Shutdown() {
	close(r.done)
	r.mu.Lock()
	visits := r.visits
	r.visits = make(map[string]*visit)
	r.mu.Unlock()
	for _, v := range visits {
		v.flow.Close()
	}
}

func (r *Registry) sweep() {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-tick.C:
			cutoff := time.Now().Add(-r.ttl)
			var expired []*visit
			r.mu.Lock()
			for id, v := range r.visits {
				if v.lastSeen.Before(cutoff) {
					expired = append(expired, v)
					delete(r.visits, id)
				}
			}
			r.mu.Unlock()
			for _, v := range expired {
				v.flow.Close()
			}
		}
	}
}

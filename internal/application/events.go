package application

import (
	"sync"
	"time"

	"github.com/bnema/claude-accounts-cli/internal/domain"
)

type EventKind string

const (
	EventAccountAdded        EventKind = "account_added"
	EventAccountUpdated      EventKind = "account_updated"
	EventAccountRemoved      EventKind = "account_removed"
	EventAccountSelected     EventKind = "account_selected"
	EventCredentialStored    EventKind = "credential_stored"
	EventCredentialRefreshed EventKind = "credential_refreshed"
	EventCredentialImported  EventKind = "credential_imported"
	EventCredentialCleared   EventKind = "credential_cleared"
)

// Event describes one committed mutation of account or credential state.
type Event struct {
	Kind      EventKind
	AccountID domain.AccountID
	At        time.Time
}

// Events fans committed mutations out to subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses that event, so consumers
// that need full fidelity re-read the store instead of replaying history.
type Events struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewEvents() *Events {
	return &Events{subs: map[int]chan Event{}}
}

// Subscribe returns a receive channel with the given buffer and a cancel
// function that unregisters and closes it. Cancel is idempotent.
func (e *Events) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := e.nextID
	e.nextID++
	ch := make(chan Event, buffer)
	e.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Publish is safe on a nil receiver so event wiring stays optional.
func (e *Events) Publish(kind EventKind, id domain.AccountID, at time.Time) {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	event := Event{Kind: kind, AccountID: id, At: at}
	for _, sub := range e.subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// Close drops all subscribers and closes their channels. Closing twice or
// closing a nil receiver is a no-op.
func (e *Events) Close() {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true

	for id, sub := range e.subs {
		delete(e.subs, id)
		close(sub)
	}
}

// Package actor provides the addressing and turn-based execution
// substrate of the engine. Every account/instrument/order entity maps to
// exactly one mailbox resolved lazily by composite key; a mailbox runs
// one task at a time to completion, so two calls against the same key
// never interleave while unrelated keys execute fully in parallel.
package actor

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrSystemClosed = errors.New("actor system closed")

const keySep = "/"

// Key addresses one logical entity. Account is required; Instrument and
// Order narrow the scope when set.
type Key struct {
	Account    string
	Instrument string
	Order      string
}

// AccountKey addresses an account-scoped entity.
func AccountKey(account string) Key {
	return Key{Account: account}
}

// InstrumentKey addresses an instrument-scoped entity.
func InstrumentKey(account, instrument string) Key {
	return Key{Account: account, Instrument: instrument}
}

// OrderKey addresses a single order entity.
func OrderKey(account, instrument, order string) Key {
	return Key{Account: account, Instrument: instrument, Order: order}
}

func (k Key) String() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{k.Account, k.Instrument, k.Order} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, keySep)
}

type task struct {
	fn   func()
	done chan struct{}
}

type mailbox struct {
	ch chan task
}

func (m *mailbox) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for t := range m.ch {
		t.fn()
		close(t.done)
	}
}

// System is the lazy registry of mailboxes.
type System struct {
	mu       sync.RWMutex
	boxes    map[string]*mailbox
	capacity int
	closed   bool
	wg       sync.WaitGroup
}

// NewSystem creates a system; capacity bounds each mailbox queue.
func NewSystem(capacity int) *System {
	if capacity <= 0 {
		capacity = 64
	}
	return &System{
		boxes:    make(map[string]*mailbox),
		capacity: capacity,
	}
}

// Do runs fn on the key's mailbox and waits until the turn completes.
// A canceled context abandons the wait; the task itself still runs so
// the entity state never observes a half-applied turn.
func (s *System) Do(ctx context.Context, key Key, fn func()) error {
	t := task{fn: fn, done: make(chan struct{})}
	if err := s.enqueue(ctx, key.String(), t); err != nil {
		return err
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue sends the task while holding the read lock, so Close (which
// closes mailbox channels under the write lock) can never overlap a
// send. A caller blocked on a full mailbox delays Close instead of
// racing it.
func (s *System) enqueue(ctx context.Context, id string, t task) error {
	box, err := s.resolve(id)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSystemClosed
	}
	select {
	case box.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the number of live mailboxes.
func (s *System) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.boxes)
}

// Close drains every mailbox and rejects further calls.
func (s *System) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, box := range s.boxes {
		close(box.ch)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *System) resolve(id string) (*mailbox, error) {
	s.mu.RLock()
	box, ok := s.boxes[id]
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrSystemClosed
	}
	if ok {
		return box, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSystemClosed
	}
	if box, ok = s.boxes[id]; ok {
		return box, nil
	}
	box = &mailbox{ch: make(chan task, s.capacity)}
	s.boxes[id] = box
	s.wg.Add(1)
	go box.run(&s.wg)
	return box, nil
}

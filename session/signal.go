// Package session holds the authenticated-session signal and bearer
// token verification. The signal is an explicitly constructed component
// wired through main, not ambient global state.
package session

import "sync"

// Signal tracks the current authenticated identity and broadcasts
// changes. Subscribers receive the identity on every change, or the
// empty string on sign-out; channels hold only the latest value.
type Signal struct {
	mu   sync.Mutex
	id   string
	subs map[chan string]struct{}
}

func NewSignal() *Signal {
	return &Signal{subs: map[chan string]struct{}{}}
}

// CurrentIdentity reports the signed-in identity, if any.
func (s *Signal) CurrentIdentity() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.id != ""
}

// Set records a signed-in identity and notifies subscribers.
func (s *Signal) Set(id string) {
	s.broadcast(id)
}

// Clear forces the session back to an unauthenticated state.
func (s *Signal) Clear() {
	s.broadcast("")
}

func (s *Signal) broadcast(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == id {
		return
	}
	s.id = id
	for ch := range s.subs {
		select {
		case ch <- id:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- id:
			default:
			}
		}
	}
}

// Subscribe registers a change listener.
func (s *Signal) Subscribe() chan string {
	ch := make(chan string, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Signal) Unsubscribe(ch chan string) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

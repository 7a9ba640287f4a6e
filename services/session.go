package services

import (
	"sync"
)

// Pairing search states exposed to the status endpoint.
const (
	SearchStateIdle      = "idle"
	SearchStateSearching = "searching"
	SearchStateMatched   = "matched"
	SearchStateCancelled = "cancelled"
)

// Session is one participant's transient engine state: the pending
// broadcast challenge and the outcome of an in-flight opponent search.
// The broadcast shortcut and the queue poller both race to pair the user;
// CompletePairing is single-assignment so the first producer wins and the
// loser becomes a no-op.
type Session struct {
	UserID string

	mu               sync.Mutex
	pendingChallenge *QuickChallenge
	searchState      string
	matchID          string
	cancelSearch     func()
}

func newSession(userID string) *Session {
	return &Session{UserID: userID, searchState: SearchStateIdle}
}

// OfferChallenge stores an incoming broadcast challenge. A session never
// keeps its own challenge.
func (s *Session) OfferChallenge(ch QuickChallenge) {
	if ch.From == s.UserID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingChallenge = &ch
}

// TakePendingChallenge returns and clears the pending challenge, if any.
func (s *Session) TakePendingChallenge() *QuickChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.pendingChallenge
	s.pendingChallenge = nil
	return ch
}

// BeginSearch marks the session searching and registers the poller's
// cancel function so an explicit cancel can stop it.
func (s *Session) BeginSearch(cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchState = SearchStateSearching
	s.matchID = ""
	s.cancelSearch = cancel
}

// CompletePairing records the paired match exactly once. Returns false
// when the search already completed or was cancelled.
func (s *Session) CompletePairing(matchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchState != SearchStateSearching {
		return false
	}
	s.searchState = SearchStateMatched
	s.matchID = matchID
	s.cancelSearch = nil
	return true
}

// CancelSearch stops an in-flight search. Safe to call when idle.
func (s *Session) CancelSearch() {
	s.mu.Lock()
	cancel := s.cancelSearch
	if s.searchState == SearchStateSearching {
		s.searchState = SearchStateCancelled
	}
	s.cancelSearch = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// SearchStatus returns the current state and matched id, if any.
func (s *Session) SearchStatus() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchState, s.matchID
}

// SessionManager owns per-user sessions. There is no global engine state:
// everything per-participant lives here.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Get returns the session for a user, creating it on first use.
func (m *SessionManager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok {
		return sess
	}
	sess := newSession(userID)
	m.sessions[userID] = sess
	return sess
}

// Broadcast fans a challenge out to every connected session except the
// originator's.
func (m *SessionManager) Broadcast(ch QuickChallenge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		sess.OfferChallenge(ch)
	}
}

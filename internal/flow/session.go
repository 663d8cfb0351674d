package flow

import (
	"sync"

	"payflow-backend/internal/models"
)

// SessionData is everything one configure call loads: the host configuration,
// the intent, the customer's stored instruments, the recovered selection hint
// and the wallet decision. It is immutable once committed; reconfiguration
// builds a fresh value, never patches this one.
type SessionData struct {
	Config       models.FlowConfiguration
	ClientSecret string
	Intent       models.Intent
	MethodTypes  []string
	SavedMethods []models.PaymentMethod
	SavedHint    models.SavedSelection
	WalletReady  bool
}

// PaymentIntent returns the session's intent as a payment intent when it is
// one.
func (d *SessionData) PaymentIntent() (*models.PaymentIntent, bool) {
	pi, ok := d.Intent.(*models.PaymentIntent)
	return pi, ok
}

func (d *SessionData) walletLabel() string {
	if d.Config.Wallet != nil {
		return d.Config.Wallet.Label
	}
	return ""
}

// InitialSelection derives the selection a fresh session starts with from the
// recovered hint: the wallet when the hint says wallet, the named instrument
// when it is still attached, nothing otherwise.
func (d *SessionData) InitialSelection() models.PaymentSelection {
	switch d.SavedHint.Kind {
	case models.SavedSelectionWallet:
		return models.WalletSelection{Label: d.walletLabel()}
	case models.SavedSelectionMethod:
		for _, method := range d.SavedMethods {
			if method.ID == d.SavedHint.MethodID {
				return models.SavedMethodSelection{Method: method}
			}
		}
		return nil
	default:
		return nil
	}
}

// SessionState holds the single live SessionData and selection for one scope.
// Mutations go through scope-checked commits: once the owning scope closes,
// no commit lands.
type SessionState struct {
	mu        sync.Mutex
	data      *SessionData
	selection models.PaymentSelection
}

func NewSessionState() *SessionState {
	return &SessionState{}
}

// Replace commits a freshly loaded session, discarding whatever was there.
// The commit is refused when the owning scope has closed.
func (s *SessionState) Replace(scope *Scope, data *SessionData, selection models.PaymentSelection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scope == nil || scope.Closed() {
		return false
	}

	s.data = data
	s.selection = selection
	return true
}

// SetSelection commits a new selection against the live session.
func (s *SessionState) SetSelection(scope *Scope, selection models.PaymentSelection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scope == nil || scope.Closed() {
		return false
	}

	s.selection = selection
	return true
}

// ClearSelection drops the selection, keeping the session data.
func (s *SessionState) ClearSelection(scope *Scope) bool {
	return s.SetSelection(scope, nil)
}

// Data returns the live session data, nil before the first successful
// configure.
func (s *SessionState) Data() *SessionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Selection returns the current selection, nil when none is chosen.
func (s *SessionState) Selection() models.PaymentSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Snapshot returns the session data and selection as one consistent read.
func (s *SessionState) Snapshot() (*SessionData, models.PaymentSelection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, s.selection
}

// SessionRegistry keys session state by flow scope so every controller bound
// to the same scope shares one state container.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*SessionState
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*SessionState)}
}

// Acquire returns the state for a scope key, creating it on first use.
func (r *SessionRegistry) Acquire(key string) *SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sessions[key]
	if !ok {
		state = NewSessionState()
		r.sessions[key] = state
	}
	return state
}

// Release destroys the state for a scope key. Wire it as a scope close hook.
func (r *SessionRegistry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// Count reports how many sessions are live.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

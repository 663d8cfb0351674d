package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"payflow-backend/internal/flow"
	"payflow-backend/internal/models"
	"payflow-backend/internal/wallet"
	"payflow-backend/pkg/logger"
)

// flowEvent is one entry in a session's event mailbox. The client drains the
// mailbox by polling; every event is delivered exactly once.
type flowEvent struct {
	Seq  int       `json:"seq"`
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data gin.H     `json:"data"`
}

const (
	eventConfigured = "configured"
	eventOptions    = "options"
	eventOption     = "option"
	eventWallet     = "wallet"
	eventRedirect   = "redirect"
	eventResult     = "result"
)

type mailbox struct {
	mu     sync.Mutex
	seq    int
	events []flowEvent
}

func (m *mailbox) push(eventType string, data gin.H) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	m.events = append(m.events, flowEvent{
		Seq:  m.seq,
		Type: eventType,
		At:   time.Now().UTC(),
		Data: data,
	})
}

// drain hands back everything queued and forgets it.
func (m *mailbox) drain() []flowEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := m.events
	m.events = nil
	if events == nil {
		events = []flowEvent{}
	}
	return events
}

// flowSession is one live payment flow: its lifecycle scope, state, controller
// and the mailbox its events are delivered through.
type flowSession struct {
	id         string
	scope      *flow.Scope
	state      *flow.SessionState
	controller *flow.Controller
	mailbox    *mailbox
	expiresAt  time.Time
}

// mailboxOptionsLauncher delivers the option picker payload to the client
// through the mailbox. The native sheet renders from this payload and posts
// its outcome back.
type mailboxOptionsLauncher struct {
	box *mailbox
}

func (l *mailboxOptionsLauncher) Present(_ context.Context, args flow.OptionsArgs) error {
	methods := make([]gin.H, 0, len(args.Methods))
	for _, method := range args.Methods {
		methods = append(methods, gin.H{
			"id":    method.ID,
			"label": method.Label(),
			"icon":  method.IconRef(),
		})
	}

	data := gin.H{
		"merchant_name":   args.MerchantName,
		"primary_color":   args.PrimaryColor,
		"formatted_total": args.FormattedTotal,
		"wallet_ready":    args.WalletReady,
		"wallet_label":    args.WalletLabel,
		"methods":         methods,
	}
	if args.CurrentOption != nil {
		data["current_option"] = gin.H{"icon": args.CurrentOption.Icon, "label": args.CurrentOption.Label}
	}
	if args.Prefill != nil {
		data["prefill"] = gin.H{
			"brand": string(args.Prefill.Brand),
			"last4": args.Prefill.Card.Last4(),
		}
	}

	l.box.push(eventOptions, data)
	return nil
}

// mailboxWalletLauncher asks the client to run the device wallet.
type mailboxWalletLauncher struct {
	box *mailbox
}

func (l *mailboxWalletLauncher) Launch(_ context.Context, args wallet.Args) error {
	l.box.push(eventWallet, gin.H{
		"environment":     string(args.Config.Environment),
		"country_code":    args.Config.CountryCode,
		"label":           args.Config.Label,
		"primary_color":   args.PrimaryColor,
		"formatted_total": args.FormattedTotal,
		"amount":          args.Intent.Amount,
		"currency":        args.Intent.Currency,
	})
	return nil
}

func optionData(option *models.PaymentOption) gin.H {
	if option == nil {
		return gin.H{"option": nil}
	}
	return gin.H{"option": gin.H{"icon": option.Icon, "label": option.Label}}
}

func resultData(result models.Result) gin.H {
	data := gin.H{"class": result.Class()}
	if failed, ok := result.(models.ResultFailed); ok && failed.Err != nil {
		data["message"] = failed.Err.Error()
	}
	return data
}

// SessionStore owns every live flow session. Sessions expire after the
// configured TTL; the sweeper closes their scope, which abandons any pending
// callbacks and releases the session.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*flowSession
	ttl      time.Duration

	sweepCancel context.CancelFunc
	sweepWG     sync.WaitGroup
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		sessions: make(map[string]*flowSession),
		ttl:      ttl,
	}
}

func (s *SessionStore) put(session *flowSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.expiresAt = time.Now().Add(s.ttl)
	s.sessions[session.id] = session
}

func (s *SessionStore) get(id string) (*flowSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Count reports how many sessions are live.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartSweeper launches the expiry loop. It stops when ctx is canceled.
func (s *SessionStore) StartSweeper(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.sweepCancel = cancel

	s.sweepWG.Add(1)
	go func() {
		defer s.sweepWG.Done()

		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *SessionStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	var expired []*flowSession
	for id, session := range s.sessions {
		if now.After(session.expiresAt) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.scope.Close()
		logger.Info("Flow session expired", map[string]interface{}{"session": session.id})
	}
}

// Shutdown stops the sweeper and closes every live session.
func (s *SessionStore) Shutdown(ctx context.Context) error {
	if s.sweepCancel != nil {
		s.sweepCancel()
	}
	s.sweepWG.Wait()

	s.mu.Lock()
	sessions := make([]*flowSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*flowSession)
	s.mu.Unlock()

	for _, session := range sessions {
		session.scope.Close()
	}

	done := make(chan struct{})
	go func() {
		for _, session := range sessions {
			waitCtx, cancel := context.WithTimeout(ctx, time.Second)
			_ = session.scope.Wait(waitCtx)
			cancel()
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

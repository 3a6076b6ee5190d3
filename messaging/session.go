package messaging

import (
	"encoding/base64"
	"sync"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateAwaitingScan SessionState = "awaiting-scan"
	StateConnected    SessionState = "connected"
)

// qrImageSize is the PNG edge length served to the admin UI.
const qrImageSize = 256

// Session is the shared view of the messaging login. The provider is the only
// writer; the HTTP layer and the reminder scheduler read it.
type Session struct {
	mu          sync.RWMutex
	state       SessionState
	qrCode      string
	qrUpdatedAt time.Time
	reason      string
	changedAt   time.Time
	onConnected []func()
	now         func() time.Time
}

type SessionSnapshot struct {
	State       SessionState `json:"state"`
	HasQR       bool         `json:"hasQr"`
	QRUpdatedAt *time.Time   `json:"qrUpdatedAt,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	ChangedAt   time.Time    `json:"changedAt"`
}

func NewSession() *Session {
	return &Session{
		state:     StateDisconnected,
		changedAt: time.Now(),
		now:       time.Now,
	}
}

// OnConnected registers fn to run, in its own goroutine, on every transition into connected.
func (s *Session) OnConnected(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnected = append(s.onConnected, fn)
}

// SetQR records a fresh login code and moves the session to awaiting-scan.
func (s *Session) SetQR(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.qrCode = code
	s.qrUpdatedAt = now
	s.reason = ""
	if s.state != StateAwaitingScan {
		s.state = StateAwaitingScan
		s.changedAt = now
	}
}

func (s *Session) SetConnected() {
	s.mu.Lock()
	wasConnected := s.state == StateConnected
	s.state = StateConnected
	s.qrCode = ""
	s.reason = ""
	if !wasConnected {
		s.changedAt = s.now()
	}
	listeners := append([]func(){}, s.onConnected...)
	s.mu.Unlock()

	if wasConnected {
		return
	}
	for _, fn := range listeners {
		go fn()
	}
}

func (s *Session) SetDisconnected(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDisconnected {
		s.changedAt = s.now()
	}
	s.state = StateDisconnected
	s.qrCode = ""
	s.reason = reason
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := SessionSnapshot{
		State:     s.state,
		HasQR:     s.qrCode != "",
		Reason:    s.reason,
		ChangedAt: s.changedAt,
	}
	if snap.HasQR {
		t := s.qrUpdatedAt
		snap.QRUpdatedAt = &t
	}
	return snap
}

// QRCode returns the raw login payload, if one is pending.
func (s *Session) QRCode() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.qrCode, s.qrCode != ""
}

// QRImageURL renders the pending login code as a PNG data URL.
func (s *Session) QRImageURL() (string, bool, error) {
	code, ok := s.QRCode()
	if !ok {
		return "", false, nil
	}
	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", false, err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), true, nil
}

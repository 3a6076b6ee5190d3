package messaging

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types/events"
)

func newTestWhatsAppProvider(t *testing.T) (*WhatsAppProvider, *Session) {
	t.Helper()
	session := NewSession()
	p, err := NewWhatsAppProvider(context.Background(), t.TempDir(), "961", session)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	p.ctx, p.cancel = ctx, cancel
	p.retryDelay = time.Millisecond
	p.dial = func(*store.Device) error { return nil }
	return p, session
}

func TestWhatsAppEventsDriveSession(t *testing.T) {
	p, session := newTestWhatsAppProvider(t)
	var connects atomic.Int32
	session.OnConnected(func() { connects.Add(1) })

	client := p.newClient(p.container.NewDevice())

	p.handleEvent(client, &events.Connected{})
	assert.Equal(t, StateConnected, session.State())
	assert.Eventually(t, func() bool { return connects.Load() == 1 }, time.Second, 5*time.Millisecond)

	p.handleEvent(client, &events.Disconnected{})
	assert.Equal(t, StateDisconnected, session.State())
	assert.Equal(t, "connection lost", session.Snapshot().Reason)

	p.handleEvent(client, &events.Connected{})
	assert.Eventually(t, func() bool { return connects.Load() == 2 }, time.Second, 5*time.Millisecond)

	p.handleEvent(client, &events.ConnectFailure{})
	assert.Equal(t, "connect failure", session.Snapshot().Reason)

	p.handleEvent(client, &events.StreamReplaced{})
	assert.Equal(t, StateDisconnected, session.State())
	assert.Equal(t, "session replaced", session.Snapshot().Reason)
	assert.False(t, p.reconnecting.Load(), "a replaced stream is not re-paired")
	assert.True(t, p.isCurrent(client))
}

func TestWhatsAppIgnoresEventsFromOldClient(t *testing.T) {
	p, session := newTestWhatsAppProvider(t)
	old := p.newClient(p.container.NewDevice())
	current := p.newClient(p.container.NewDevice())
	require.True(t, p.isCurrent(current))

	p.handleEvent(old, &events.Connected{})
	assert.Equal(t, StateDisconnected, session.State())

	items := make(chan whatsmeow.QRChannelItem, 1)
	items <- whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventCode, Code: "2@old"}
	close(items)
	p.watchQR(old, items)
	_, ok := session.QRCode()
	assert.False(t, ok)
}

func TestWhatsAppQRItems(t *testing.T) {
	p, session := newTestWhatsAppProvider(t)
	var dials atomic.Int32
	p.dial = func(*store.Device) error {
		dials.Add(1)
		return nil
	}
	client := p.newClient(p.container.NewDevice())

	items := make(chan whatsmeow.QRChannelItem, 2)
	items <- whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventCode, Code: "2@abc,def"}
	items <- whatsmeow.QRChannelSuccess
	close(items)
	p.watchQR(client, items)

	code, ok := session.QRCode()
	require.True(t, ok)
	assert.Equal(t, "2@abc,def", code)
	assert.Equal(t, StateAwaitingScan, session.State())

	items = make(chan whatsmeow.QRChannelItem, 1)
	items <- whatsmeow.QRChannelTimeout
	close(items)
	p.watchQR(client, items)

	assert.Equal(t, StateDisconnected, session.State())
	assert.Equal(t, "qr code expired", session.Snapshot().Reason)
	assert.Eventually(t, func() bool { return dials.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWhatsAppLoggedOutReloginRetriesOnce(t *testing.T) {
	p, session := newTestWhatsAppProvider(t)
	var attempts atomic.Int32
	release := make(chan struct{})
	p.dial = func(*store.Device) error {
		if attempts.Add(1) < 3 {
			return errors.New("dial tcp: i/o timeout")
		}
		<-release
		return nil
	}
	client := p.newClient(p.container.NewDevice())

	p.handleEvent(client, &events.LoggedOut{})
	assert.Equal(t, "logged out", session.Snapshot().Reason)
	assert.Eventually(t, func() bool { return attempts.Load() == 3 }, time.Second, time.Millisecond)
	assert.False(t, p.isCurrent(client), "the logged out client is dropped")

	// a pairing error racing the logout must not start a second login
	p.relogin("pairing error")
	assert.Equal(t, int32(3), attempts.Load())
	assert.True(t, p.reconnecting.Load())

	close(release)
	assert.Eventually(t, func() bool { return !p.reconnecting.Load() }, time.Second, time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestWhatsAppStartRetriesFailedConnect(t *testing.T) {
	p, _ := newTestWhatsAppProvider(t)
	var attempts atomic.Int32
	p.dial = func(*store.Device) error {
		if attempts.Add(1) == 1 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	}

	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(p.Stop)
	assert.Eventually(t, func() bool { return attempts.Load() == 2 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return !p.reconnecting.Load() }, time.Second, time.Millisecond)
}

func TestWhatsAppStoppedProviderDoesNotRelogin(t *testing.T) {
	p, _ := newTestWhatsAppProvider(t)
	var attempts atomic.Int32
	p.dial = func(*store.Device) error {
		attempts.Add(1)
		return nil
	}

	p.Stop()
	p.relogin("logged out")
	assert.Zero(t, attempts.Load())
	assert.False(t, p.reconnecting.Load())
}

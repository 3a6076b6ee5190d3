package messaging

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	// registers the "sqlite" database/sql driver used by the session store
	_ "modernc.org/sqlite"
)

const (
	sessionDBName = "session.db"
	reloginDelay  = 5 * time.Second
	maxRetryDelay = 2 * time.Minute
)

var _ Provider = (*WhatsAppProvider)(nil)

// WhatsAppProvider logs into WhatsApp as a linked device and sends reminders from it.
// Device keys live in a sqlite file inside the session directory.
type WhatsAppProvider struct {
	countryCode string
	session     *Session
	container   *sqlstore.Container

	mu     sync.Mutex
	client *whatsmeow.Client
	ctx    context.Context
	cancel context.CancelFunc

	// one reconnect loop at a time
	reconnecting atomic.Bool
	retryDelay   time.Duration
	dial         func(*store.Device) error
}

func NewWhatsAppProvider(ctx context.Context, sessionDir, countryCode string, session *Session) (*WhatsAppProvider, error) {
	if err := os.MkdirAll(sessionDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create session dir")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", filepath.Join(sessionDir, sessionDBName))
	container, err := sqlstore.New(ctx, "sqlite", dsn, waLog.Stdout("Database", "WARN", true))
	if err != nil {
		return nil, errors.Wrap(err, "open whatsapp session store")
	}
	p := &WhatsAppProvider{
		countryCode: countryCode,
		session:     session,
		container:   container,
		retryDelay:  reloginDelay,
	}
	p.dial = p.connect
	return p, nil
}

// Start connects with the stored device, or begins a QR login when there is none.
func (p *WhatsAppProvider) Start(ctx context.Context) error {
	device, err := p.container.GetFirstDevice(ctx)
	if err != nil {
		return errors.Wrap(err, "load whatsapp device")
	}
	p.mu.Lock()
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	if err := p.dial(device); err != nil {
		log.Printf("[WHATSAPP] initial connect failed: %v", err)
		go p.reconnect(func() *store.Device { return device }, "initial connect failed")
	}
	return nil
}

func (p *WhatsAppProvider) Stop() {
	p.mu.Lock()
	client := p.client
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if client != nil {
		client.Disconnect()
	}
	p.session.SetDisconnected("shutdown")
}

func (p *WhatsAppProvider) Connected() bool {
	return p.session.Connected()
}

func (p *WhatsAppProvider) SendMessage(ctx context.Context, phoneNumber, text string) error {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	if !p.session.Connected() || client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	jid := types.NewJID(ChatUser(p.countryCode, phoneNumber), types.DefaultUserServer)
	resp, err := client.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return errors.Wrapf(err, "send to %s", jid)
	}
	log.Printf("[WHATSAPP] message %s accepted for %s", resp.ID, jid)
	return nil
}

func (p *WhatsAppProvider) newClient(device *store.Device) *whatsmeow.Client {
	client := whatsmeow.NewClient(device, waLog.Stdout("Client", "INFO", true))
	// Network errors on the first dial of a paired device are retried by whatsmeow itself.
	client.InitialAutoReconnect = true
	client.AddEventHandler(func(evt interface{}) {
		p.handleEvent(client, evt)
	})

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return client
}

func (p *WhatsAppProvider) connect(device *store.Device) error {
	client := p.newClient(device)
	ctx := p.context()

	if client.Store.ID != nil {
		return errors.Wrap(client.Connect(), "connect whatsapp")
	}

	// The QR channel has to be opened before connecting.
	qrChan, err := client.GetQRChannel(ctx)
	if err != nil {
		return errors.Wrap(err, "open qr channel")
	}
	if err := client.Connect(); err != nil {
		return errors.Wrap(err, "connect whatsapp")
	}
	go p.watchQR(client, qrChan)
	return nil
}

func (p *WhatsAppProvider) watchQR(client *whatsmeow.Client, qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		if !p.isCurrent(client) {
			return
		}
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			p.session.SetQR(item.Code)
			printQR(item.Code)
		case whatsmeow.QRChannelSuccess.Event:
			log.Println("[WHATSAPP] QR scanned, pairing succeeded")
		case whatsmeow.QRChannelTimeout.Event:
			p.session.SetDisconnected("qr code expired")
			go p.relogin("qr timeout")
		case whatsmeow.QRChannelEventError:
			log.Printf("[WHATSAPP] pairing error: %v", item.Error)
			p.session.SetDisconnected("pairing failed")
			go p.relogin("pairing error")
		default:
			log.Printf("[WHATSAPP] login event: %s", item.Event)
		}
	}
}

func (p *WhatsAppProvider) handleEvent(client *whatsmeow.Client, evt interface{}) {
	if !p.isCurrent(client) {
		return
	}
	switch v := evt.(type) {
	case *events.Connected:
		log.Println("[WHATSAPP] client is ready")
		p.session.SetConnected()
	case *events.PairSuccess:
		log.Printf("[WHATSAPP] paired as %s", v.ID)
	case *events.LoggedOut:
		log.Printf("[WHATSAPP] logged out: %v", v.Reason)
		p.session.SetDisconnected("logged out")
		go p.relogin("logged out")
	case *events.StreamReplaced:
		// Not reconnected: the other session would be kicked and kick back.
		log.Println("[WHATSAPP] session opened elsewhere, restart the server to take it back")
		p.session.SetDisconnected("session replaced")
	case *events.ConnectFailure:
		log.Printf("[WHATSAPP] connect failure: %v %s", v.Reason, v.Message)
		p.session.SetDisconnected("connect failure")
	case *events.Disconnected:
		log.Println("[WHATSAPP] connection lost, waiting for reconnect")
		p.session.SetDisconnected("connection lost")
	}
}

// relogin drops the current client and pairs a fresh device.
func (p *WhatsAppProvider) relogin(reason string) {
	p.reconnect(p.container.NewDevice, reason)
}

// reconnect drops the current client and dials device() until a connect
// succeeds or the provider stops. Calls made while a loop is running are dropped.
func (p *WhatsAppProvider) reconnect(device func() *store.Device, reason string) {
	if !p.reconnecting.CompareAndSwap(false, true) {
		log.Printf("[WHATSAPP] reconnect already in progress, ignoring %s", reason)
		return
	}
	defer p.reconnecting.Store(false)

	ctx := p.context()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	log.Printf("[WHATSAPP] starting a new login (%s)", reason)

	p.mu.Lock()
	old := p.client
	p.client = nil
	p.mu.Unlock()
	if old != nil {
		old.Disconnect()
	}

	delay := p.retryDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		err := p.dial(device())
		if err == nil {
			return
		}
		delay = min(delay*2, maxRetryDelay)
		log.Printf("[WHATSAPP] login restart failed, retrying in %s: %v", delay, err)
	}
}

func (p *WhatsAppProvider) context() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx
}

func (p *WhatsAppProvider) isCurrent(client *whatsmeow.Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client == client
}

func printQR(code string) {
	qr, err := qrcode.New(code, qrcode.Low)
	if err != nil {
		log.Printf("[WHATSAPP] cannot render QR: %v", err)
		return
	}
	fmt.Println(qr.ToSmallString(false))
}

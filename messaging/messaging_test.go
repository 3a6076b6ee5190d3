package messaging

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

func TestChatUser(t *testing.T) {
	assert.Equal(t, "9613123456", ChatUser("961", "03123456"))
	assert.Equal(t, "96171123456", ChatUser("961", "71123456"))
	assert.Equal(t, "961003", ChatUser("+961", "0003"), "only one leading zero is dropped")
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StateDisconnected, s.State())
	assert.False(t, s.Connected())

	_, ok, err := s.QRImageURL()
	require.NoError(t, err)
	assert.False(t, ok)

	s.SetQR("2@abc,def,ghi")
	assert.Equal(t, StateAwaitingScan, s.State())
	snap := s.Snapshot()
	assert.True(t, snap.HasQR)
	require.NotNil(t, snap.QRUpdatedAt)

	url, ok, err := s.QRImageURL()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	s.SetConnected()
	assert.True(t, s.Connected())
	_, ok = s.QRCode()
	assert.False(t, ok, "connecting clears the pending QR")

	s.SetDisconnected("logged out")
	snap = s.Snapshot()
	assert.Equal(t, StateDisconnected, snap.State)
	assert.Equal(t, "logged out", snap.Reason)
}

func TestSessionConnectedListenersFireOnTransitionOnly(t *testing.T) {
	s := NewSession()
	var calls atomic.Int32
	s.OnConnected(func() { calls.Add(1) })

	s.SetConnected()
	s.SetConnected()
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.SetDisconnected("connection lost")
	s.SetConnected()
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

type fakeCreator struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioProvider(t *testing.T) {
	ctx := context.Background()
	session := NewSession()
	p := NewTwilioProvider("AC1", "token", "+15550001111", "961", session)
	api := &fakeCreator{}
	p.api = api

	assert.ErrorIs(t, p.SendMessage(ctx, "03123456", "hi"), ErrNotConnected)

	require.NoError(t, p.Start(ctx))
	assert.True(t, p.Connected())

	require.NoError(t, p.SendMessage(ctx, "03123456", "hello"))
	require.Len(t, api.params, 1)
	assert.Equal(t, "whatsapp:+9613123456", *api.params[0].To)
	assert.Equal(t, "whatsapp:+15550001111", *api.params[0].From)
	assert.Equal(t, "hello", *api.params[0].Body)

	api.err = errors.New("boom")
	assert.Error(t, p.SendMessage(ctx, "03123456", "hello"))

	p.Stop()
	assert.False(t, p.Connected())
}

func TestTwilioProviderRequiresCredentials(t *testing.T) {
	p := NewTwilioProvider("", "", "", "961", NewSession())
	assert.Error(t, p.Start(context.Background()))
}

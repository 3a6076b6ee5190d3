package messaging

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var _ Provider = (*TwilioProvider)(nil)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioProvider sends reminders on Twilio's WhatsApp channel. There is no QR
// login: the session counts as connected once credentials are present.
type TwilioProvider struct {
	api         messageCreator
	from        string
	countryCode string
	configured  bool
	session     *Session
}

func NewTwilioProvider(accountSid, authToken, from, countryCode string, session *Session) *TwilioProvider {
	return &TwilioProvider{
		api: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}).Api,
		from:        from,
		countryCode: countryCode,
		configured:  accountSid != "" && authToken != "" && from != "",
		session:     session,
	}
}

func (p *TwilioProvider) Start(_ context.Context) error {
	if !p.configured {
		return errors.New("twilio credentials are not configured")
	}
	p.session.SetConnected()
	log.Println("[TWILIO] sender ready")
	return nil
}

func (p *TwilioProvider) Stop() {
	p.session.SetDisconnected("shutdown")
}

func (p *TwilioProvider) Connected() bool {
	return p.session.Connected()
}

func (p *TwilioProvider) SendMessage(_ context.Context, phoneNumber, text string) error {
	if !p.session.Connected() {
		return ErrNotConnected
	}

	to := "whatsapp:+" + ChatUser(p.countryCode, phoneNumber)
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom("whatsapp:" + p.from)
	params.SetBody(text)

	resp, err := p.api.CreateMessage(params)
	if err != nil {
		return errors.Wrapf(err, "send to %s", to)
	}
	if resp != nil && resp.Sid != nil {
		log.Printf("[TWILIO] message sent to %s, SID: %s", to, *resp.Sid)
	} else {
		log.Printf("[TWILIO] message sent to %s, but no SID returned", to)
	}
	return nil
}

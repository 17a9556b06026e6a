// Package email delivers verification codes. Email goes through Resend;
// phone delivery is stubbed behind the same interface until an SMS gateway
// is wired in.
package email

import (
	"fmt"
	"log"
	"os"

	"github.com/resend/resend-go/v3"
)

// CodeSender delivers a verification code over one channel.
type CodeSender interface {
	SendCode(to, code string) error
}

// ResendSender sends verification emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender reads RESEND_API_KEY and EMAIL_FROM from the environment.
// Returns an error when the key is missing so the caller can fall back to
// the log sender in development.
func NewResendSender() (*ResendSender, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is not set")
	}
	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = "TariffSnap <no-reply@tariffsnap.app>"
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from}, nil
}

func (s *ResendSender) SendCode(to, code string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: "Your TariffSnap verification code",
		Html: fmt.Sprintf(
			`<p>Your verification code is:</p><h2>%s</h2><p>It expires in 15 minutes.</p>`,
			code,
		),
	}
	if _, err := s.client.Emails.Send(params); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// LogSender writes the code to the server log instead of delivering it.
// Used for phone verification and for development mail.
type LogSender struct {
	Channel string
}

func (s LogSender) SendCode(to, code string) error {
	log.Printf("verification(%s): code for %s is %s", s.Channel, to, code)
	return nil
}

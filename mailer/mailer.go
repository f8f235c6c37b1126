// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mailer

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"

	"github.com/dajohi/goemail"
)

// Sender delivers voter-facing notifications. Handlers call it
// fire-and-forget: delivery failure never rolls back token issuance or
// ballot acceptance.
type Sender interface {
	SendMagicLink(email, electionTitle, voteURL string) error
	SendTrackingCode(email, electionTitle, trackingCode string) error
}

// SMTPSender sends through an SMTP server via goemail. Mail is considered
// disabled when credentials are missing, in which case every send is a
// logged no-op.
type SMTPSender struct {
	smtp        *goemail.SMTP
	mailName    string
	mailAddress string
	disabled    bool
}

// NewSMTPSender connects to host as user. An empty host or user disables
// mail entirely, which is the expected dev and test configuration.
func NewSMTPSender(host, user, password, fromAddress string, skipVerify bool) (*SMTPSender, error) {
	if host == "" || user == "" {
		slog.Info("mail disabled: no SMTP host configured")
		return &SMTPSender{disabled: true}, nil
	}

	u, err := url.Parse(fmt.Sprintf("smtps://%s:%s@%s", user, password, host))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP host: %w", err)
	}

	addr, err := mail.ParseAddress(fromAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}

	smtp, err := goemail.NewSMTP(u.String(), &tls.Config{
		InsecureSkipVerify: skipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up SMTP: %w", err)
	}

	return &SMTPSender{
		smtp:        smtp,
		mailName:    addr.Name,
		mailAddress: addr.Address,
	}, nil
}

func (s *SMTPSender) SendMagicLink(email, electionTitle, voteURL string) error {
	subject := "Your voting link - " + electionTitle
	body := fmt.Sprintf(magicLinkBody, electionTitle, voteURL)
	return s.send(email, subject, body)
}

func (s *SMTPSender) SendTrackingCode(email, electionTitle, trackingCode string) error {
	subject := "Your ballot receipt - " + electionTitle
	body := fmt.Sprintf(trackingCodeBody, electionTitle, trackingCode)
	return s.send(email, subject, body)
}

func (s *SMTPSender) send(to, subject, body string) error {
	if s.disabled {
		slog.Info("mail disabled: skipping send", "to", to, "subject", subject)
		return nil
	}

	msg := goemail.NewMessage(s.mailAddress, subject, body)
	msg.SetName(s.mailName)
	msg.AddTo(to)
	return s.smtp.Send(msg)
}

const magicLinkBody = `You have been invited to vote in the election %q.

Open your personal voting link to cast your ballot:

    %s

The link is valid for a short time, can be used exactly once, and is
personal to you. Do not forward it.
`

const trackingCodeBody = `Your ballot for the election %q has been recorded.

Your tracking code:

    %s

You can use this code at any time to confirm that your ballot is included,
without revealing its content.
`

// LogSender writes notifications to the structured log instead of sending
// them. Used in tests and when running without an SMTP server.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendMagicLink(email, electionTitle, voteURL string) error {
	slog.Info("magic link issued", "email", email, "election", electionTitle, "url", voteURL)
	return nil
}

func (s *LogSender) SendTrackingCode(email, electionTitle, trackingCode string) error {
	slog.Info("tracking code sent", "email", email, "election", electionTitle, "code", trackingCode)
	return nil
}

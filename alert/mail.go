package alert

import (
	"context"
	"fmt"
	"time"

	mailgun "github.com/mailgun/mailgun-go/v3"
	"github.com/rs/zerolog"
)

const (
	sendTimeout = 10 * time.Second
	mailBacklog = 4
)

// MailgunConfig is the settings needed to send alerts through Mailgun.
type MailgunConfig struct {
	APIKey     string   `yaml:"api_key"`
	Domain     string   `yaml:"domain"`
	Sender     string   `yaml:"sender"`
	Recipients []string `yaml:"recipients"`
}

// Enabled reports whether enough is configured to send mail.
func (c MailgunConfig) Enabled() bool {
	return c.APIKey != "" && c.Domain != "" && c.Sender != "" && len(c.Recipients) > 0
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

type mailgunSender struct {
	mg         *mailgun.MailgunImpl
	from       string
	recipients []string
}

// NewMailgun returns a Sender backed by the Mailgun API.
func NewMailgun(c MailgunConfig) Sender {
	return &mailgunSender{
		mg:         mailgun.NewMailgun(c.Domain, c.APIKey),
		from:       c.Sender,
		recipients: c.Recipients,
	}
}

func (s *mailgunSender) Send(ctx context.Context, subject, body string) error {
	message := s.mg.NewMessage(s.from, subject, body, s.recipients...)
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("mailgun: invalid message id: %s", resp)
	}
	return nil
}

type mail struct {
	subject string
	body    string
}

// Mail e-mails alerts. Sending happens on the goroutine started by Run so
// a slow mail API never stalls the caller; when the backlog is full new
// alerts are dropped and logged.
type Mail struct {
	name   string
	sender Sender
	log    zerolog.Logger
	queue  chan mail
	now    func() time.Time
}

// NewMail returns a Mail alerter for the device called name.
func NewMail(name string, s Sender, log zerolog.Logger) *Mail {
	return &Mail{
		name:   name,
		sender: s,
		log:    log,
		queue:  make(chan mail, mailBacklog),
		now:    time.Now,
	}
}

func (m *Mail) OverTemperature() {
	m.enqueue(mail{
		subject: fmt.Sprintf("[%s] over temperature", m.name),
		body:    fmt.Sprintf("%s reported over temperature at %s.", m.name, m.now().Format(time.RFC1123)),
	})
}

func (m *Mail) SafeConditions() {
	m.enqueue(mail{
		subject: fmt.Sprintf("[%s] temperature safe", m.name),
		body:    fmt.Sprintf("%s returned to safe operating conditions at %s.", m.name, m.now().Format(time.RFC1123)),
	})
}

func (m *Mail) enqueue(msg mail) {
	select {
	case m.queue <- msg:
	default:
		m.log.Error().Str("subject", msg.subject).Msg("mail backlog full, alert not sent")
	}
}

// Run sends queued alerts until ctx is done.
func (m *Mail) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			sctx, cancel := context.WithTimeout(ctx, sendTimeout)
			if err := m.sender.Send(sctx, msg.subject, msg.body); err != nil {
				m.log.Error().Err(err).Str("subject", msg.subject).Msg("failed to send alert")
			}
			cancel()
		}
	}
}

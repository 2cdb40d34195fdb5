package mailer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/choreista/platform_be_chores/internal/utils"
)

const sendGridHost = "https://api.sendgrid.com"

// Mailer delivers confirmation codes and keeps the marketing list in sync.
type Mailer interface {
	SendCode(ctx context.Context, to, code string) error
	AddContact(ctx context.Context, email, firstName, lastName string) error
}

type SendGridConfig struct {
	APIKey     string
	FromEmail  string
	FromName   string
	TemplateID string
	Sandbox    bool
}

type SendGridMailer struct {
	cfg    SendGridConfig
	client *sendgrid.Client
}

func NewSendGrid(cfg SendGridConfig) *SendGridMailer {
	return &SendGridMailer{cfg: cfg, client: sendgrid.NewSendClient(cfg.APIKey)}
}

func (m *SendGridMailer) SendCode(ctx context.Context, to, code string) error {
	resp, err := m.client.SendWithContext(ctx, m.codeMessage(to, code))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// codeMessage uses the dynamic template when one is configured and falls back
// to a plain single email otherwise.
func (m *SendGridMailer) codeMessage(to, code string) *mail.SGMailV3 {
	from := mail.NewEmail(m.cfg.FromName, m.cfg.FromEmail)

	var msg *mail.SGMailV3
	if m.cfg.TemplateID != "" {
		msg = mail.NewV3Mail()
		msg.SetFrom(from)
		msg.SetReplyTo(from)
		msg.SetTemplateID(m.cfg.TemplateID)

		p := mail.NewPersonalization()
		p.AddTos(mail.NewEmail("", to))
		p.SetDynamicTemplateData("name", to)
		p.SetDynamicTemplateData("code", code)
		msg.AddPersonalizations(p)
	} else {
		text := fmt.Sprintf("Your Choreista confirmation code is %s", code)
		html := fmt.Sprintf("<p>Your Choreista confirmation code is <strong>%s</strong></p>", code)
		msg = mail.NewSingleEmail(from, "Choreista confirmation code", mail.NewEmail("", to), text, html)
	}

	if m.cfg.Sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}
	return msg
}

type contact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (m *SendGridMailer) AddContact(ctx context.Context, email, firstName, lastName string) error {
	body, err := json.Marshal(map[string][]contact{
		"contacts": {{Email: email, FirstName: firstName, LastName: lastName}},
	})
	if err != nil {
		return err
	}

	req := sendgrid.GetRequest(m.cfg.APIKey, "/v3/marketing/contacts", sendGridHost)
	req.Method = "PUT"
	req.Body = body

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid contacts: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid contacts: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer is used when no SendGrid key is configured.
type LogMailer struct{}

func (LogMailer) SendCode(ctx context.Context, to, code string) error {
	utils.Logger.WithField("to", to).Infof("confirmation code %s", code)
	return nil
}

func (LogMailer) AddContact(ctx context.Context, email, firstName, lastName string) error {
	utils.Logger.WithField("email", email).Debug("marketing contact skipped")
	return nil
}

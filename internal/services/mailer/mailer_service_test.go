package mailer

import (
	"context"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeMessageWithTemplate(t *testing.T) {
	m := NewSendGrid(SendGridConfig{
		APIKey:     "key",
		FromEmail:  "team@choreista.app",
		FromName:   "Choreista Team",
		TemplateID: "d-123",
		Sandbox:    true,
	})

	msg := m.codeMessage("ann@example.com", "123456")
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "d-123", msg.TemplateID)
	assert.Equal(t, "123456", msg.Personalizations[0].DynamicTemplateData["code"])
	assert.Equal(t, "ann@example.com", msg.Personalizations[0].DynamicTemplateData["name"])
	assert.Equal(t, "Choreista Team", msg.From.Name)
	require.NotNil(t, msg.MailSettings)
	assert.True(t, *msg.MailSettings.SandboxMode.Enable)

	body := string(mail.GetRequestBody(msg))
	assert.Contains(t, body, `"template_id":"d-123"`)
}

func TestCodeMessageWithoutTemplate(t *testing.T) {
	m := NewSendGrid(SendGridConfig{APIKey: "key", FromEmail: "team@choreista.app"})

	msg := m.codeMessage("ann@example.com", "654321")
	assert.Empty(t, msg.TemplateID)
	assert.Nil(t, msg.MailSettings)
	require.NotEmpty(t, msg.Content)
	assert.Contains(t, msg.Content[0].Value, "654321")
}

func TestLogMailer(t *testing.T) {
	var m Mailer = LogMailer{}
	assert.NoError(t, m.SendCode(context.Background(), "ann@example.com", "111111"))
	assert.NoError(t, m.AddContact(context.Background(), "ann@example.com", "Ann", "Lee"))
}

package mailer

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	c.sent = append(c.sent, m...)
	return c.err
}

func TestSendSafetyAlertEscapesMessage(t *testing.T) {
	sender := &captureSender{}
	svc := NewEmailServiceWithSender(sender, "noreply@example.com", "Counselor Safety")

	err := svc.SendSafetyAlert("oncall@example.com", SafetyAlertMail{
		SessionId: "s1",
		UserId:    "u1",
		RunId:     "r1",
		Message:   "<script>I can't go on</script>",
		RiskLevel: 8,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"oncall@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"[Safety] Risk level 8 in session s1"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "<script>")
}

func TestSendSafetyAlertWrapsSenderError(t *testing.T) {
	boom := errors.New("smtp down")
	svc := NewEmailServiceWithSender(&captureSender{err: boom}, "noreply@example.com", "Counselor Safety")

	err := svc.SendSafetyAlert("oncall@example.com", SafetyAlertMail{SessionId: "s1"})
	assert.ErrorIs(t, err, boom)
}

package mailer

import (
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

// SafetyAlertMail carries what the on-call counselor needs to follow up.
type SafetyAlertMail struct {
	SessionId string
	UserId    string
	RunId     string
	Message   string
	RiskLevel int
	Timestamp time.Time
}

type IEmailService interface {
	SendSafetyAlert(toEmail string, alert SafetyAlertMail) error
}

// Sender is the part of gomail.Dialer the service needs.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	sender      Sender
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderName string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)
	return NewEmailServiceWithSender(d, username, senderName)
}

func NewEmailServiceWithSender(sender Sender, senderEmail, senderName string) IEmailService {
	return &emailService{
		sender:      sender,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (s *emailService) SendSafetyAlert(toEmail string, alert SafetyAlertMail) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Safety] Risk level %d in session %s", alert.RiskLevel, alert.SessionId))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2 style="color: #C62828;">Safety alert</h2>
			<p>A message was assessed at risk level <strong>%d</strong> of 10.</p>
			<table style="border-collapse: collapse;">
				<tr><td style="padding-right: 12px;">Session</td><td>%s</td></tr>
				<tr><td style="padding-right: 12px;">User</td><td>%s</td></tr>
				<tr><td style="padding-right: 12px;">Run</td><td>%s</td></tr>
				<tr><td style="padding-right: 12px;">Received</td><td>%s</td></tr>
			</table>
			<p>Message:</p>
			<blockquote style="border-left: 4px solid #C62828; margin: 0; padding-left: 12px;">%s</blockquote>
			<p>Please review the conversation and follow the escalation protocol.</p>
		</div>
	`, alert.RiskLevel,
		html.EscapeString(alert.SessionId),
		html.EscapeString(alert.UserId),
		html.EscapeString(alert.RunId),
		alert.Timestamp.UTC().Format(time.RFC1123),
		html.EscapeString(alert.Message),
	)

	m.SetBody("text/html", body)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send safety alert to %s: %w", toEmail, err)
	}
	return nil
}

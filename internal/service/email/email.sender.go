package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Sender delivers a single message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type AuditLog interface {
	Record(ctx context.Context, recipient, subject, status string) (string, error)
}

type SMTPSender struct {
	smtpHost string
	smtpPort string
	username string
	password string
	from     string
	audit    AuditLog
	log      *zap.SugaredLogger
}

func NewSMTPSender(host, port, username, password, from string, audit AuditLog, logger *zap.SugaredLogger) *SMTPSender {
	return &SMTPSender{
		smtpHost: host,
		smtpPort: port,
		username: username,
		password: password,
		from:     from,
		audit:    audit,
		log:      logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	addr := s.smtpHost + ":" + s.smtpPort

	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
		"\r\n" + body + "\r\n")

	err := s.deliver(addr, to, msg)
	status := "SENT"
	if err != nil {
		status = "FAILED"
	}
	if s.audit != nil {
		if _, auditErr := s.audit.Record(ctx, to, subject, status); auditErr != nil {
			s.log.Warnw("email audit record failed", "recipient", to, "error", auditErr)
		}
	}
	if err != nil {
		s.log.Errorw("email delivery failed", "recipient", to, "subject", subject, "error", err)
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	s.log.Infow("email sent", "recipient", to, "subject", subject)
	return nil
}

func (s *SMTPSender) deliver(addr, to string, msg []byte) error {
	tlsConfig := &tls.Config{ServerName: s.smtpHost}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}

	client, err := smtp.NewClient(conn, s.smtpHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", s.username, s.password, s.smtpHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write smtp body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close smtp body: %w", err)
	}
	return nil
}

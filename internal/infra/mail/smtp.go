package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"compliance_reminders/internal/domain/mailer"

	"github.com/google/uuid"
)

// SMTPSender delivers through a relay. Bcc addresses only go into the envelope.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	startTLS bool
	timeout  time.Duration
}

func NewSMTPSender(host string, port int, username, password string, startTLS bool, timeout time.Duration) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		startTLS: startTLS,
		timeout:  timeout,
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

// Send returns the generated Message-ID as provider id.
func (s *SMTPSender) Send(ctx context.Context, msg *mailer.Message) (string, error) {
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return "", errors.New("no recipients")
	}
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return "", fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.host)
	raw := buildMIME(msg, from, messageID, time.Now())

	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return "", fmt.Errorf("smtp dial failed: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if s.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if s.startTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return "", fmt.Errorf("smtp starttls failed: %w", err)
		}
	}
	if s.username != "" && s.password != "" {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return "", fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(from.Address); err != nil {
		return "", err
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return "", fmt.Errorf("smtp rcpt %s rejected: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return "", err
	}
	if _, err := w.Write([]byte(raw)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	if err := client.Quit(); err != nil {
		return "", err
	}
	return messageID, nil
}

func buildMIME(msg *mailer.Message, from *mail.Address, messageID string, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	if len(msg.To) > 0 {
		b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	}
	if len(msg.CC) > 0 {
		b.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(msg.CC, ", ")))
	}
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject)))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", now.Format(time.RFC1123Z)))
	b.WriteString(fmt.Sprintf("Message-ID: %s\r\n", messageID))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.HTML, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.String()
}

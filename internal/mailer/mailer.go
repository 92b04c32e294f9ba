// Package mailer delivers the report by SMTP. Messages are composed with
// go-message: an HTML body plus the PDF as an attachment.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/common"
)

// SubjectPrefix starts every report subject line.
const SubjectPrefix = "Daybreak Edition — "

// implicitTLSPort is SMTPS; other ports use SendMail, which upgrades with STARTTLS when offered.
const implicitTLSPort = 465

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Configured reports whether a message can be sent.
func (c Config) Configured() bool {
	return c.Host != "" && c.From != "" && len(c.To) > 0
}

// Attachment is a file attached to the message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one report email.
type Message struct {
	Subject     string
	HTML        string
	Attachments []Attachment
	Date        time.Time
}

// Subject returns the report subject for the given report date.
func Subject(reportDate string) string {
	return SubjectPrefix + reportDate
}

type sendFunc func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends report messages.
type Mailer struct {
	cfg    Config
	logger arbor.ILogger
	send   sendFunc
}

// New creates a mailer.
func New(cfg Config, logger arbor.ILogger) *Mailer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, logger: logger, send: sendSMTP}
}

// Send composes msg and delivers it to every configured recipient.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Configured() {
		return errors.New("SMTP not configured: host, from and to are required")
	}

	raw, err := Compose(m.cfg.From, m.cfg.To, msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	if err := m.send(ctx, addr, auth, m.cfg.From, m.cfg.To, raw); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Info().
		Strs("to", m.cfg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("Report email sent")
	return nil
}

// Compose builds the RFC 5322 message.
func Compose(from string, to []string, msg Message) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parse from address: %w", err)
	}
	toAddrs := make([]*mail.Address, 0, len(to))
	for _, t := range to {
		a, err := mail.ParseAddress(t)
		if err != nil {
			return nil, fmt.Errorf("parse recipient %q: %w", t, err)
		}
		toAddrs = append(toAddrs, a)
	}

	date := msg.Date
	if date.IsZero() {
		date = time.Now()
	}

	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{fromAddr})
	h.SetAddressList("To", toAddrs)
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}
	var th mail.InlineHeader
	th.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("create html part: %w", err)
	}
	if _, err := io.WriteString(w, msg.HTML); err != nil {
		return nil, fmt.Errorf("write html part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		var ah mail.AttachmentHeader
		ah.SetContentType(contentType, nil)
		ah.SetFilename(att.Filename)
		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("create attachment %s: %w", att.Filename, err)
		}
		if _, err := w.Write(att.Content); err != nil {
			return nil, fmt.Errorf("write attachment %s: %w", att.Filename, err)
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

func sendSMTP(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if port != strconv.Itoa(implicitTLSPort) {
		return smtp.SendMail(addr, auth, from, to, msg)
	}

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return client.Quit()
}

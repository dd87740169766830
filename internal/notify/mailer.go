package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"commerce-backoffice/internal/config"
	"commerce-backoffice/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Message is one outgoing mail.
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
	Cc          []string
	Bcc         []string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

type SMTPMailer struct {
	cfg    config.SMTPConfig
	addr   string
	auth   smtp.Auth
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger zerolog.Logger
}

// NewSMTPMailer fails with domain.ErrConfiguration when the host or the
// sender address is missing.
func NewSMTPMailer(cfg config.SMTPConfig, logger zerolog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.FromEmail == "" {
		return nil, fmt.Errorf("%w: smtp host and from address are required", domain.ErrConfiguration)
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	m := &SMTPMailer{
		cfg:    cfg,
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		send:   smtp.SendMail,
		logger: logger,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail: recipient required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := m.compose(msg, time.Now())
	if err != nil {
		return err
	}
	rcpt := append([]string{msg.To}, msg.Cc...)
	rcpt = append(rcpt, msg.Bcc...)
	if err := m.send(m.addr, m.auth, m.cfg.FromEmail, rcpt, raw); err != nil {
		m.logger.Error().Err(err).Str("to", msg.To).Msg("mail: send failed")
		return fmt.Errorf("mail: %w", err)
	}
	m.logger.Debug().Str("to", msg.To).Str("subject", msg.Subject).Int("bcc", len(msg.Bcc)).Msg("mail: sent")
	return nil
}

// compose renders an RFC 5322 message. Bcc recipients are never written
// into the headers.
func (m *SMTPMailer) compose(msg Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	from := mail.Address{Name: m.cfg.FromName, Address: m.cfg.FromEmail}
	to := mail.Address{Name: msg.ToName, Address: msg.To}

	header := textproto.MIMEHeader{}
	header.Set("From", from.String())
	header.Set("To", to.String())
	if len(msg.Cc) > 0 {
		header.Set("Cc", strings.Join(msg.Cc, ", "))
	}
	if m.cfg.ReplyToEmail != "" {
		header.Set("Reply-To", (&mail.Address{Name: m.cfg.ReplyToName, Address: m.cfg.ReplyToEmail}).String())
	}
	header.Set("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header.Set("Date", now.Format(time.RFC1123Z))
	header.Set("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), m.cfg.Host))
	header.Set("MIME-Version", "1.0")

	mixed := multipart.NewWriter(&buf)
	header.Set("Content-Type", "multipart/mixed; boundary="+mixed.Boundary())
	for _, k := range []string{"From", "To", "Cc", "Reply-To", "Subject", "Date", "Message-ID", "MIME-Version", "Content-Type"} {
		if v := header.Get(k); v != "" {
			fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
		}
	}
	buf.WriteString("\r\n")

	var body bytes.Buffer
	alt := multipart.NewWriter(&body)
	text := msg.Text
	if text == "" {
		text = stripTags(msg.HTML)
	}
	if err := writePart(alt, "text/plain; charset=utf-8", []byte(text)); err != nil {
		return nil, err
	}
	if msg.HTML != "" {
		if err := writePart(alt, "text/html; charset=utf-8", []byte(msg.HTML)); err != nil {
			return nil, err
		}
	}
	if err := alt.Close(); err != nil {
		return nil, err
	}
	altPart, err := mixed.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + alt.Boundary()}})
	if err != nil {
		return nil, err
	}
	if _, err := altPart.Write(body.Bytes()); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		part, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {ct},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, a.Data); err != nil {
			return nil, err
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePart(w *multipart.Writer, contentType string, data []byte) error {
	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return err
	}
	return writeBase64(part, data)
}

// writeBase64 wraps encoded output at 76 columns.
func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := io.WriteString(w, enc[:76]+"\r\n"); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := io.WriteString(w, enc+"\r\n")
	return err
}

func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// DiscardMailer logs and drops every message. Used when SMTP is not configured.
type DiscardMailer struct {
	Logger zerolog.Logger
}

func (d DiscardMailer) Send(_ context.Context, m Message) error {
	d.Logger.Info().Str("to", m.To).Str("subject", m.Subject).Msg("mail: smtp disabled, message dropped")
	return nil
}

package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// ErrNoStartTLS is returned when the server does not offer STARTTLS
var ErrNoStartTLS = errors.New("server does not support STARTTLS")

// Envelope is a composed message ready for delivery
type Envelope struct {
	Addr string // host:port
	Host string
	Auth smtp.Auth
	From string
	To   []string
	Data []byte
}

// Transport delivers an envelope
type Transport func(ctx context.Context, e *Envelope) error

func WithLogger(logger *slog.Logger) func(*SMTPNotifier) {
	return func(n *SMTPNotifier) {
		n.logger = logger
	}
}

// WithTransport replaces the SMTP delivery, used to test message composition
func WithTransport(t Transport) func(*SMTPNotifier) {
	return func(n *SMTPNotifier) {
		n.transport = t
	}
}

// SMTPNotifier mails the summary over SMTP with STARTTLS and PLAIN auth
type SMTPNotifier struct {
	config    Config
	transport Transport
	logger    *slog.Logger
	now       func() time.Time
}

var _ Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(config *Config, options ...func(*SMTPNotifier)) (*SMTPNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	n := SMTPNotifier{
		config:    *config,
		transport: sendMail,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}

	for _, option := range options {
		option(&n)
	}

	return &n, nil
}

func (n *SMTPNotifier) Notify(ctx context.Context, summary Summary) error {
	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, string(n.config.Password), n.config.Host)
	}

	e := Envelope{
		Addr: net.JoinHostPort(n.config.Host, strconv.Itoa(n.config.Port)),
		Host: n.config.Host,
		Auth: auth,
		From: envelopeAddress(n.config.sender()),
		To:   []string{envelopeAddress(n.config.recipient())},
		Data: n.compose(summary),
	}

	n.logger.Debug("sending campaign summary", slog.String("server", e.Addr), slog.String("to", e.To[0]))

	if err := n.transport(ctx, &e); err != nil {
		return fmt.Errorf("sending summary to %s: %w", e.To[0], err)
	}

	n.logger.Info("campaign summary sent", slog.String("to", e.To[0]))
	return nil
}

func (n *SMTPNotifier) compose(summary Summary) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "From: %s\r\n", n.config.sender())
	fmt.Fprintf(&b, "To: %s\r\n", n.config.recipient())
	fmt.Fprintf(&b, "Subject: %s\r\n", n.config.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.Write(bytes.ReplaceAll([]byte(summary.Message()), []byte("\n"), []byte("\r\n")))

	return b.Bytes()
}

func sendMail(ctx context.Context, e *Envelope) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", e.Addr)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err = conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("setting deadline: %w", err)
		}
	}

	c, err := smtp.NewClient(conn, e.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("greeting: %w", err)
	}
	defer c.Close() // no-op error after a successful QUIT

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return ErrNoStartTLS
	}
	if err = c.StartTLS(&tls.Config{ServerName: e.Host}); err != nil {
		return fmt.Errorf("starting TLS: %w", err)
	}

	if e.Auth != nil {
		if err = c.Auth(e.Auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err = c.Mail(e.From); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, to := range e.To {
		if err = c.Rcpt(to); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", to, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err = w.Write(e.Data); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("finishing message: %w", err)
	}

	return c.Quit()
}

package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/slot-booking/internal/config"
	"github.com/magabrotheeeer/slot-booking/internal/lib/sl"
)

// Client часть *smtp.Client, нужная для отправки одного письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// ErrNoStartTLS сервер не поддерживает STARTTLS.
var ErrNoStartTLS = errors.New("smtp server does not support STARTTLS")

// Transport отправляет письма. Соединение всегда переводится в TLS
// через STARTTLS, на каждое письмо открывается новое соединение.
type Transport struct {
	cfg     config.SMTP
	log     *slog.Logger
	timeout time.Duration
	from    mail.Address
	dial    func(ctx context.Context) (Client, error)
	now     func() time.Time
}

// NewTransport создает новый экземпляр Transport.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	t := &Transport{
		cfg:     cfg,
		log:     log,
		timeout: 10 * time.Second,
		from:    Sender(cfg),
		now:     time.Now,
	}
	t.dial = t.connect
	return t
}

// Sender адрес отправителя: smtp.from, а если он пуст, логин SMTP.
func Sender(cfg config.SMTP) mail.Address {
	addr := cfg.From
	if addr == "" {
		addr = cfg.SMTPUser
	}
	return mail.Address{Name: cfg.FromName, Address: addr}
}

// Send отправляет письмо всем получателям msg.
func (t *Transport) Send(ctx context.Context, msg Message) error {
	const op = "smtp.Send"

	if t.from.Address == "" {
		return fmt.Errorf("%s: %w: empty sender", op, ErrInvalidAddress)
	}
	data, err := msg.Build(t.from, t.now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	to, _ := msg.recipients()

	client, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Mail(t.from.Address); err != nil {
		t.log.Error("failed to set MAIL FROM", slog.String("from", t.from.Address), sl.Err(err))
		return fmt.Errorf("%s: mail: %w", op, err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			t.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return fmt.Errorf("%s: rcpt: %w", op, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		t.log.Error("failed to get data writer", sl.Err(err))
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write(data); err != nil {
		t.log.Error("failed to write email body", sl.Err(err))
		return fmt.Errorf("%s: write: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		t.log.Error("failed to close data writer", sl.Err(err))
		return fmt.Errorf("%s: data close: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		t.log.Warn("failed to quit SMTP client", sl.Err(err))
	}
	return nil
}

// connect устанавливает соединение с SMTP сервером.
func (t *Transport) connect(ctx context.Context) (Client, error) {
	const op = "smtp.Connect"
	addr := net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)

	d := net.Dialer{Timeout: t.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		t.log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		t.log.Error("failed to create SMTP client", sl.Err(err))
		if closeErr := conn.Close(); closeErr != nil {
			t.log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: new client: %w", op, err)
	}

	ok, _ := client.Extension("STARTTLS")
	if !ok {
		t.log.Error("SMTP server does not support STARTTLS")
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, ErrNoStartTLS)
	}
	if err = client.StartTLS(&tls.Config{ServerName: t.cfg.SMTPHost, MinVersion: tls.VersionTLS12}); err != nil {
		t.log.Error("failed to start TLS", sl.Err(err))
		_ = client.Close()
		return nil, fmt.Errorf("%s: starttls: %w", op, err)
	}

	if t.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
		if err = client.Auth(auth); err != nil {
			t.log.Error("smtp auth failed", sl.Err(err))
			_ = client.Close()
			return nil, fmt.Errorf("%s: auth: %w", op, err)
		}
	}
	return client, nil
}

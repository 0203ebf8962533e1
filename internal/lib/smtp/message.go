// Package smtp отправляет письма через SMTP-сервер с обязательным STARTTLS.
package smtp

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"
)

// Ошибки сборки письма.
var (
	ErrNoRecipients   = errors.New("message has no recipients")
	ErrInvalidAddress = errors.New("invalid email address")
)

// Message письмо в виде простого текста.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// recipients проверяет адреса получателей и возвращает их без имён.
func (m Message) recipients() ([]string, error) {
	if len(m.To) == 0 {
		return nil, ErrNoRecipients
	}
	out := make([]string, 0, len(m.To))
	for _, raw := range m.To {
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
		}
		out = append(out, addr.Address)
	}
	return out, nil
}

// Build собирает письмо с заголовками RFC 5322. Тема кодируется как
// encoded-word, строки тела переводятся на CRLF.
func (m Message) Build(from mail.Address, date time.Time) ([]byte, error) {
	to, err := m.recipients()
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	header("From", from.String())
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.Bytes(), nil
}

package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newCapturingSMTP(cfg Config) (*SMTPProvider, *capturedMail) {
	got := &capturedMail{}
	p := NewSMTP(cfg)
	p.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		got.addr = addr
		got.from = from
		got.to = to
		got.msg = string(msg)
		return nil
	}
	return p, got
}

func TestSendTemplateRendersAndEscapes(t *testing.T) {
	p, got := newCapturingSMTP(Config{Host: "smtp.test", Port: 2525, From: "shop@notemart.test"})

	err := p.SendTemplate(context.Background(), []string{"asha@example.com"}, "verification_code", map[string]any{
		"name": "<Asha>",
		"code": "123456",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.addr != "smtp.test:2525" {
		t.Fatalf("unexpected addr %q", got.addr)
	}
	if !strings.Contains(got.msg, "Subject: Verify your email\r\n") {
		t.Fatalf("missing subject header in %q", got.msg)
	}
	if !strings.Contains(got.msg, "123456") {
		t.Fatalf("code not rendered")
	}
	if strings.Contains(got.msg, "<Asha>") {
		t.Fatalf("name must be html escaped")
	}
}

func TestSendTemplateSubjectOverride(t *testing.T) {
	p, got := newCapturingSMTP(Config{Host: "smtp.test", Port: 25})
	err := p.SendTemplate(context.Background(), []string{"ops@example.com"}, "contact_received", map[string]any{
		"subject": "Contact: refund\r\nBcc: evil@example.com",
		"name":    "Ravi",
		"email":   "ravi@example.com",
		"topic":   "refund",
		"message": "hello",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if strings.Contains(got.msg, "\r\nBcc:") {
		t.Fatalf("header injection not sanitized: %q", got.msg)
	}
}

func TestSendTemplateUnknown(t *testing.T) {
	p, _ := newCapturingSMTP(Config{})
	err := p.SendTemplate(context.Background(), []string{"a@example.com"}, "missing", nil)
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestSendRequiresRecipients(t *testing.T) {
	p, _ := newCapturingSMTP(Config{})
	if err := p.Send(context.Background(), nil, "s", "b"); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

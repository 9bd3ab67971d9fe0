package notification

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Template Engine Tests
// ---------------------------------------------------------------------------

func TestTemplateEngine_RegisterAndRender(t *testing.T) {
	eng := NewTemplateEngine()
	eng.RegisterTemplate(Template{
		ID:      "test-tpl",
		Subject: "Hello {{name}}",
		Body:    "Dear {{name}}, your code is {{code}}.",
	})

	subject, body, err := eng.Render("test-tpl", map[string]string{
		"name": "Alice",
		"code": "1234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Hello Alice" {
		t.Errorf("subject = %q, want %q", subject, "Hello Alice")
	}
	if body != "Dear Alice, your code is 1234." {
		t.Errorf("body = %q, want %q", body, "Dear Alice, your code is 1234.")
	}
}

func TestTemplateEngine_RenderMissing(t *testing.T) {
	eng := NewTemplateEngine()
	if _, _, err := eng.Render("nonexistent", nil); err == nil {
		t.Fatal("expected error for missing template, got nil")
	}
}

func TestTemplateEngine_BuiltInTemplates(t *testing.T) {
	eng := NewTemplateEngine()
	for _, id := range []string{TemplateAppointmentConfirmed, TemplateAppointmentCanceled, TemplatePasswordReset} {
		if _, _, err := eng.Render(id, nil); err != nil {
			t.Errorf("built-in template %q not found: %v", id, err)
		}
	}
}

func TestTemplateEngine_UnknownKeysLeftAsIs(t *testing.T) {
	eng := NewTemplateEngine()
	_, body, err := eng.Render(TemplatePasswordReset, map[string]string{"other": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "{{reset_link}}") {
		t.Errorf("expected placeholder to remain, got %q", body)
	}
}

// ---------------------------------------------------------------------------
// Notifier Tests
// ---------------------------------------------------------------------------

type recordingObserver struct {
	mu   sync.Mutex
	seen map[string]int
	errs int
}

func (o *recordingObserver) ObserveEmail(template string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen == nil {
		o.seen = make(map[string]int)
	}
	o.seen[template]++
	if err != nil {
		o.errs++
	}
}

func TestNotifier_AppointmentConfirmed(t *testing.T) {
	sender := &MockEmailSender{}
	obs := &recordingObserver{}
	n := NewNotifier(sender, zerolog.Nop(), obs)

	start := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	n.AppointmentConfirmed(context.Background(), Recipient{Email: "pat@example.com", Firstname: "Pat"}, "Ada", start)

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].To != "pat@example.com" {
		t.Errorf("to = %q", calls[0].To)
	}
	if !strings.Contains(calls[0].Body, "Dr. Ada") {
		t.Errorf("expected doctor name in body, got %q", calls[0].Body)
	}
	if !strings.Contains(calls[0].Body, "Wed, 04 Mar 2026 09:30 UTC") {
		t.Errorf("expected start time in body, got %q", calls[0].Body)
	}
	if obs.seen[TemplateAppointmentConfirmed] != 1 || obs.errs != 0 {
		t.Errorf("unexpected observer state: %+v", obs)
	}
}

func TestNotifier_AppointmentCanceled(t *testing.T) {
	sender := &MockEmailSender{}
	n := NewNotifier(sender, zerolog.Nop(), nil)

	n.AppointmentCanceled(context.Background(), Recipient{Email: "pat@example.com", Firstname: "Pat"}, time.Now())

	calls := sender.Calls()
	if len(calls) != 1 || calls[0].Subject != "Appointment Cancellation" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestNotifier_PasswordReset(t *testing.T) {
	sender := &MockEmailSender{}
	n := NewNotifier(sender, zerolog.Nop(), nil)

	n.PasswordReset(context.Background(), "pat@example.com", "http://localhost:3000/reset-password/tok")

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].Subject != "Reset password" {
		t.Errorf("subject = %q", calls[0].Subject)
	}
	if !strings.HasSuffix(calls[0].Body, "http://localhost:3000/reset-password/tok") {
		t.Errorf("expected link in body, got %q", calls[0].Body)
	}
}

func TestNotifier_FailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	sender := &MockEmailSender{ShouldFail: true, FailError: "smtp: connection refused"}
	obs := &recordingObserver{}
	n := NewNotifier(sender, zerolog.New(&buf), obs)

	n.AppointmentCanceled(context.Background(), Recipient{Email: "pat@example.com"}, time.Now())

	if obs.errs != 1 {
		t.Errorf("expected failure to be observed, got %d", obs.errs)
	}
	if !strings.Contains(buf.String(), "email delivery failed") {
		t.Errorf("expected warning log, got %s", buf.String())
	}
}

func TestNotifier_EmptyRecipientSkipsSend(t *testing.T) {
	sender := &MockEmailSender{}
	obs := &recordingObserver{}
	n := NewNotifier(sender, zerolog.Nop(), obs)

	n.PasswordReset(context.Background(), "", "link")

	if len(sender.Calls()) != 0 {
		t.Error("expected no send for empty recipient")
	}
	if obs.errs != 1 {
		t.Error("expected empty recipient to count as a failure")
	}
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 2525, From: "no-reply@healthcare.local"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.SendEmail(ctx, "pat@example.com", "s", "b"); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(zerolog.New(&buf))
	if err := s.SendEmail(context.Background(), "pat@example.com", "Hello", "Body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"to":"pat@example.com"`) {
		t.Errorf("expected recipient in log, got %s", buf.String())
	}
}

func TestMockEmailSender_Concurrent(t *testing.T) {
	m := &MockEmailSender{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.SendEmail(context.Background(), "a@b.c", "s", "b")
		}()
	}
	wg.Wait()
	if len(m.Calls()) != 20 {
		t.Errorf("expected 20 calls, got %d", len(m.Calls()))
	}
}

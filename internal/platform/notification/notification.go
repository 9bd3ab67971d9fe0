// Package notification delivers transactional email: appointment
// confirmations, cancellations and password reset links. Templates are
// rendered by a small {{key}} engine and handed to an EmailSender; the
// production sender speaks SMTP through gomail.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-gomail/gomail"
	"github.com/rs/zerolog"
)

// Template IDs.
const (
	TemplateAppointmentConfirmed = "appointment-confirmed"
	TemplateAppointmentCanceled  = "appointment-canceled"
	TemplatePasswordReset        = "password-reset"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ---------------------------------------------------------------------------
// SMTP sender
// ---------------------------------------------------------------------------

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends plain text mail through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. It is
// used in development when no SMTP host is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.logger.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("email (not delivered)")
	return nil
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateAppointmentConfirmed,
			Subject: "Appointment Confirmation",
			Body:    "Hi {{firstname}},\nYour appointment with Dr. {{doctor_firstname}} has been confirmed for {{start_time}}.",
		},
		{
			ID:      TemplateAppointmentCanceled,
			Subject: "Appointment Cancellation",
			Body:    "Hi {{firstname}},\nYour appointment scheduled for {{start_time}} has been canceled.",
		},
		{
			ID:      TemplatePasswordReset,
			Subject: "Reset password",
			Body:    "Hi,\nHere is your reset password link: {{reset_link}}",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// ---------------------------------------------------------------------------
// Notifier
// ---------------------------------------------------------------------------

// Observer records delivery outcomes. telemetry.Metrics implements it.
type Observer interface {
	ObserveEmail(template string, err error)
}

// Notifier renders a template and sends it. Delivery is best effort: errors
// are logged and counted but never returned, so a mail outage cannot undo a
// booking or cancellation that has already committed.
type Notifier struct {
	sender   EmailSender
	tpl      *TemplateEngine
	logger   zerolog.Logger
	observer Observer
}

func NewNotifier(sender EmailSender, logger zerolog.Logger, observer Observer) *Notifier {
	return &Notifier{
		sender:   sender,
		tpl:      NewTemplateEngine(),
		logger:   logger.With().Str("component", "notification").Logger(),
		observer: observer,
	}
}

// Notify renders templateID with data and mails it to the recipient.
func (n *Notifier) Notify(ctx context.Context, templateID, to string, data map[string]string) {
	err := n.deliver(ctx, templateID, to, data)
	if n.observer != nil {
		n.observer.ObserveEmail(templateID, err)
	}
	if err != nil {
		n.logger.Warn().Err(err).Str("template", templateID).Str("to", to).Msg("email delivery failed")
		return
	}
	n.logger.Info().Str("template", templateID).Str("to", to).Msg("email sent")
}

func (n *Notifier) deliver(ctx context.Context, templateID, to string, data map[string]string) error {
	if to == "" {
		return errors.New("recipient address is empty")
	}
	subject, body, err := n.tpl.Render(templateID, data)
	if err != nil {
		return err
	}
	return n.sender.SendEmail(ctx, to, subject, body)
}

// Recipient identifies who a message is addressed to.
type Recipient struct {
	Email     string
	Firstname string
}

// AppointmentConfirmed tells a patient their booking went through.
func (n *Notifier) AppointmentConfirmed(ctx context.Context, to Recipient, doctorFirstname string, start time.Time) {
	n.Notify(ctx, TemplateAppointmentConfirmed, to.Email, map[string]string{
		"firstname":        to.Firstname,
		"doctor_firstname": doctorFirstname,
		"start_time":       formatTime(start),
	})
}

// AppointmentCanceled tells a patient their appointment was canceled.
func (n *Notifier) AppointmentCanceled(ctx context.Context, to Recipient, start time.Time) {
	n.Notify(ctx, TemplateAppointmentCanceled, to.Email, map[string]string{
		"firstname":  to.Firstname,
		"start_time": formatTime(start),
	})
}

// PasswordReset mails the reset link.
func (n *Notifier) PasswordReset(ctx context.Context, to, link string) {
	n.Notify(ctx, TemplatePasswordReset, to, map[string]string{"reset_link": link})
}

func formatTime(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}

// ---------------------------------------------------------------------------
// Mock sender (test double)
// ---------------------------------------------------------------------------

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}

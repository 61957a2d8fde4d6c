package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/careloop/portal-api/internal/model"
)

// Service sends portal notification mail. Sends are best-effort: a
// failed notification never fails the write that triggered it.
type Service interface {
	SendAppointmentCreated(ctx context.Context, to string, apt *model.Appointment) error
	SendAppointmentStatusChanged(ctx context.Context, to string, apt *model.Appointment) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *smtpService) SendAppointmentCreated(_ context.Context, to string, apt *model.Appointment) error {
	body := fmt.Sprintf(
		"A new appointment was booked for %s at %s.\nStatus: %s\n",
		apt.Date, apt.Time, apt.Status,
	)
	return s.send(to, "New appointment booked", body)
}

func (s *smtpService) SendAppointmentStatusChanged(_ context.Context, to string, apt *model.Appointment) error {
	body := fmt.Sprintf(
		"Your appointment on %s at %s is now %s.\n",
		apt.Date, apt.Time, apt.Status,
	)
	return s.send(to, fmt.Sprintf("Appointment %s", apt.Status), body)
}

// NoopService discards all mail; used when SMTP is not configured.
type NoopService struct{}

func (NoopService) SendAppointmentCreated(context.Context, string, *model.Appointment) error {
	return nil
}

func (NoopService) SendAppointmentStatusChanged(context.Context, string, *model.Appointment) error {
	return nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campuskit/timetable-portal/internal/config"
	"github.com/campuskit/timetable-portal/pkg/logger"
	"gopkg.in/gomail.v2"
)

// SMTPEmailService delivers through a plain SMTP relay, the default for
// development and self-hosted deployments.
type SMTPEmailService struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

func NewSMTPEmailService(cfg config.EmailConfig, log *slog.Logger) *SMTPEmailService {
	return &SMTPEmailService{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:   cfg.FromAddress,
		logger: log,
	}
}

func (s *SMTPEmailService) SendOTP(ctx context.Context, to, name, otp string, expiry time.Duration) error {
	if err := s.send(ctx, to, "Your password reset code", otpEmailBody(name, otp, expiry)); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}

	s.logger.Info("otp email sent", slog.String("to", logger.SanitizedEmail(to)))
	return nil
}

func (s *SMTPEmailService) SendWelcome(ctx context.Context, to, name, rollNumber, tempPassword string) error {
	if err := s.send(ctx, to, "Welcome to the timetable portal", welcomeEmailBody(name, rollNumber, tempPassword)); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	s.logger.Info("welcome email sent", slog.String("to", logger.SanitizedEmail(to)))
	return nil
}

// gomail has no context support; honor cancellation before dialing at least
func (s *SMTPEmailService) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return s.dialer.DialAndSend(msg)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/campuskit/timetable-portal/internal/config"
	"github.com/campuskit/timetable-portal/pkg/logger"
)

// EmailService sends the portal's transactional mail. Send failures propagate
// to the caller; flows that depend on delivery (OTP recovery) must not report
// success for mail that never left.
type EmailService interface {
	SendOTP(ctx context.Context, to, name, otp string, expiry time.Duration) error
	SendWelcome(ctx context.Context, to, name, rollNumber, tempPassword string) error
}

// SESEmailService delivers through AWS SES
type SESEmailService struct {
	client *ses.Client
	from   string
	logger *slog.Logger
}

func NewSESEmailService(ctx context.Context, cfg config.EmailConfig, log *slog.Logger) (*SESEmailService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESEmailService{
		client: ses.NewFromConfig(awsCfg),
		from:   cfg.FromAddress,
		logger: log,
	}, nil
}

func (s *SESEmailService) SendOTP(ctx context.Context, to, name, otp string, expiry time.Duration) error {
	subject := "Your password reset code"
	body := otpEmailBody(name, otp, expiry)

	if err := s.send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}

	// Never log the code itself
	s.logger.Info("otp email sent", slog.String("to", logger.SanitizedEmail(to)))
	return nil
}

func (s *SESEmailService) SendWelcome(ctx context.Context, to, name, rollNumber, tempPassword string) error {
	subject := "Welcome to the timetable portal"
	body := welcomeEmailBody(name, rollNumber, tempPassword)

	if err := s.send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	s.logger.Info("welcome email sent", slog.String("to", logger.SanitizedEmail(to)))
	return nil
}

func (s *SESEmailService) send(ctx context.Context, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	return err
}

func otpEmailBody(name, otp string, expiry time.Duration) string {
	return fmt.Sprintf(
		"Hi %s,\n\n"+
			"Your one-time password reset code is:\n\n"+
			"    %s\n\n"+
			"The code expires in %d minutes. If you did not request a password reset, ignore this email.\n",
		name, otp, int(expiry.Minutes()),
	)
}

func welcomeEmailBody(name, rollNumber, tempPassword string) string {
	return fmt.Sprintf(
		"Hi %s,\n\n"+
			"Your timetable portal account is ready.\n\n"+
			"    Roll number: %s\n"+
			"    Default password: %s\n\n"+
			"You will be asked to choose a new password on first login.\n",
		name, rollNumber, tempPassword,
	)
}

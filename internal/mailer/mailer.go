package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"communifund/platform-backend/internal/config"
)

// Mailer sends transactional mail.
type Mailer interface {
	SendVerificationOTP(ctx context.Context, to, otp string) error
}

type sesMailer struct {
	client *sesv2.Client
	sender string
}

// NewSESMailer builds a mailer on SES v2 using the default credential chain.
func NewSESMailer(ctx context.Context, cfg config.MailConfig) (Mailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &sesMailer{
		client: sesv2.NewFromConfig(awsCfg),
		sender: cfg.Sender,
	}, nil
}

func (m *sesMailer) SendVerificationOTP(ctx context.Context, to, otp string) error {
	subject := "Email Verification OTP"
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 500px; margin: 0 auto;">
		  <h2 style="color: #333;">Email Verification</h2>
		  <p>Your OTP for email verification is:</p>
		  <div style="background-color: #f5f5f5; padding: 15px; text-align: center; margin: 20px 0;">
		    <h1 style="margin: 0; color: #333; letter-spacing: 5px;">%s</h1>
		  </div>
		  <p>This OTP will expire in 10 minutes.</p>
		  <p>If you didn't request this, please ignore this email.</p>
		</div>`, otp)

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

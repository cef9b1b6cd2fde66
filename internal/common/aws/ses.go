package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const charset = "UTF-8"

type SESClient struct {
	client *ses.Client
}

func loadConfig(ctx context.Context, region string) (awssdk.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

func NewSESClient(ctx context.Context, region string) (*SESClient, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, nil
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return s.client.SendEmail(ctx, input, optFns...)
}

// Email is a single-recipient message with a text body and an optional
// HTML alternative.
type Email struct {
	From     string
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// BuildEmailInput converts e into an SES request.
func BuildEmailInput(e Email) *ses.SendEmailInput {
	body := &types.Body{
		Text: &types.Content{Charset: awssdk.String(charset), Data: awssdk.String(e.TextBody)},
	}
	if e.HTMLBody != "" {
		body.Html = &types.Content{Charset: awssdk.String(charset), Data: awssdk.String(e.HTMLBody)}
	}

	return &ses.SendEmailInput{
		Source:      awssdk.String(e.From),
		Destination: &types.Destination{ToAddresses: []string{e.To}},
		Message: &types.Message{
			Subject: &types.Content{Charset: awssdk.String(charset), Data: awssdk.String(e.Subject)},
			Body:    body,
		},
	}
}

package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/report"
)

// SNS rejects subjects longer than this.
const maxSubjectLen = 100

// SNSClient publishes SMS messages to phone numbers and report alerts to a
// topic.
type SNSClient struct {
	svc      *sns.Client
	topicArn string
}

// NewSNSClient creates a new SNS client instance
func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &SNSClient{
		svc:      sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}, nil
}

// SendText publishes body directly to an E.164 phone number.
func (c *SNSClient) SendText(ctx context.Context, to, body string) (report.Receipt, error) {
	result, err := c.svc.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
	})
	if err != nil {
		return report.Receipt{}, fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return report.Receipt{SID: aws.ToString(result.MessageId), Status: "sent"}, nil
}

// SendMedia sends the media link in the message text. SMS has no attachments.
func (c *SNSClient) SendMedia(ctx context.Context, to, body, mediaURL string) (report.Receipt, error) {
	return c.SendText(ctx, to, body+"\n"+mediaURL)
}

// PublishAlerts sends the alerts of a report as one numbered notification.
func (c *SNSClient) PublishAlerts(ctx context.Context, subject string, alerts []string) error {
	if len(alerts) == 0 || c.topicArn == "" {
		return nil
	}

	_, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(clip(subject, maxSubjectLen)),
		Message:  aws.String(alertMessage(alerts)),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}

func alertMessage(alerts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d alertas detectadas:\n\n", len(alerts))
	for i, a := range alerts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

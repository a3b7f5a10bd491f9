package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the part of the SQS client the publisher needs.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQSPublisher struct {
	client   SQSAPI
	queueURL string
	siteID   string
}

func NewSQSPublisher(client SQSAPI, queueURL, siteID string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL, siteID: siteID}
}

// DialSQS loads the default AWS configuration and resolves queueName to its URL.
func DialSQS(ctx context.Context, region, queueName, siteID string) (*SQSPublisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := sqs.NewFromConfig(cfg)
	out, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err != nil {
		return nil, fmt.Errorf("resolve queue %s: %w", queueName, err)
	}
	return NewSQSPublisher(client, aws.ToString(out.QueueUrl), siteID), nil
}

func (p *SQSPublisher) Publish(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = p.siteID
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type": {DataType: aws.String("String"), StringValue: aws.String(string(e.Type))},
		},
	})
	if err != nil {
		return fmt.Errorf("send %s %s: %w", e.Type, e.Key, err)
	}
	return nil
}

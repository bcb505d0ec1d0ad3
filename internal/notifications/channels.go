package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"gorm.io/datatypes"

	"baaseteen/case-portal/case-portal-backend/internal/notifications/websocket"
)

// InAppChannel stores status change notifications for the assigned personnel.
// Form completion notifications are written by the completing transaction
// itself and are skipped here.
type InAppChannel struct {
	repo Repository
}

func NewInAppChannel(repo Repository) *InAppChannel {
	return &InAppChannel{repo: repo}
}

func (c *InAppChannel) Name() string { return ChannelInApp }

func (c *InAppChannel) Deliver(ctx context.Context, env Envelope, caseID uint, recipients []uint) error {
	event, ok := env.Data.(StatusChangeEvent)
	if env.Type != EventStatusChanged || !ok || len(recipients) == 0 {
		return nil
	}

	metadata, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode notification metadata: %w", err)
	}

	id := caseID
	items := make([]Notification, 0, len(recipients))
	for _, userID := range recipients {
		items = append(items, Notification{
			UserID:   userID,
			CaseID:   &id,
			Type:     EventStatusChanged,
			Title:    fmt.Sprintf("Case %s moved to %s", event.CaseNumber, event.ToStatus),
			Message:  statusChangeMessage(event),
			Metadata: datatypes.JSON(metadata),
		})
	}
	return c.repo.CreateNotifications(ctx, items)
}

func statusChangeMessage(e StatusChangeEvent) string {
	msg := fmt.Sprintf("%s changed the status of case %s from %s to %s.", e.ActorName, e.CaseNumber, e.FromStatus, e.ToStatus)
	if e.Comment != "" {
		msg += " Comment: " + e.Comment
	}
	return msg
}

// WebSocketChannel pushes events to recipients that are connected.
type WebSocketChannel struct {
	manager *websocket.Manager
}

func NewWebSocketChannel(manager *websocket.Manager) *WebSocketChannel {
	return &WebSocketChannel{manager: manager}
}

func (c *WebSocketChannel) Name() string { return ChannelWebSocket }

func (c *WebSocketChannel) Deliver(_ context.Context, env Envelope, _ uint, recipients []uint) error {
	msg := websocket.Message{Type: env.Type, Data: env.Data, Timestamp: env.Timestamp}
	var errs []error
	for _, userID := range recipients {
		err := c.manager.SendToUser(userID, msg)
		if err != nil && !errors.Is(err, websocket.ErrNotConnected) {
			errs = append(errs, fmt.Errorf("user %d: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}

// SNSPublisher is the subset of the SNS client used by SNSChannel.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSChannel publishes every event to a topic for downstream consumers.
type SNSChannel struct {
	client   SNSPublisher
	topicARN string
}

func NewSNSChannel(client SNSPublisher, topicARN string) *SNSChannel {
	return &SNSChannel{client: client, topicARN: topicARN}
}

// NewSNSClient builds a client from the default AWS credential chain.
func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return sns.NewFromConfig(cfg), nil
}

func (c *SNSChannel) Name() string { return ChannelSNS }

func (c *SNSChannel) Deliver(ctx context.Context, env Envelope, _ uint, _ []uint) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = c.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(env.Type),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}

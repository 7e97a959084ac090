package tracking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
)

// Event is the queue message emitted for every click and conversion.
type Event struct {
	Type       domain.ClickEventType   `json:"type"`
	Click      *domain.ClickEvent      `json:"click,omitempty"`
	Conversion *domain.ConversionEvent `json:"conversion,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
}

// EventPublisher hands events to the queue.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event)
}

// SQSSender is the subset of the SQS client the publisher uses.
type SQSSender interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends events to SQS without blocking the request path.
type Publisher struct {
	client   SQSSender
	queueURL string
	wg       sync.WaitGroup
}

func NewPublisher(client SQSSender, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// Publish marshals evt and sends it in the background with its own timeout,
// so a finished request does not cancel the send.
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	body, err := json.Marshal(evt)
	if err != nil {
		logger.Error("tracking: marshal event", "type", string(evt.Type), "error", err)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			logger.Error("tracking: publish to SQS", "type", string(evt.Type), "error", err)
		}
	}()
}

// Wait blocks until in-flight sends finish.
func (p *Publisher) Wait() { p.wg.Wait() }

// Router sends each event type to its own publisher. Types without a
// publisher are dropped.
type Router map[domain.ClickEventType]EventPublisher

func (r Router) Publish(ctx context.Context, evt Event) {
	if p, ok := r[evt.Type]; ok && p != nil {
		p.Publish(ctx, evt)
		return
	}
	logger.Debug("tracking: no publisher for event", "type", string(evt.Type))
}

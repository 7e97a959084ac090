package tracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
)

// SQSReceiver is the subset of the SQS client the consumer uses.
type SQSReceiver interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// EventStore persists consumed events. Implementations must ignore
// redelivered events with a known id.
type EventStore interface {
	InsertClick(ctx context.Context, e *domain.ClickEvent) error
	InsertConversion(ctx context.Context, c *domain.ConversionEvent) error
}

// Consumer drains the event queue into the store.
type Consumer struct {
	sqsClient SQSReceiver
	queueURL  string
	store     EventStore
	done      chan struct{}
}

func NewConsumer(sqsClient SQSReceiver, queueURL string, store EventStore) *Consumer {
	return &Consumer{
		sqsClient: sqsClient,
		queueURL:  queueURL,
		store:     store,
		done:      make(chan struct{}),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	logger.Info("tracking: SQS consumer started", "queue", c.queueURL)
	go c.poll(ctx)
}

func (c *Consumer) Stop() {
	close(c.done)
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		if err := c.receive(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("tracking: SQS receive", "error", err)
			time.Sleep(5 * time.Second)
		}
	}
}

// receive handles one batch. Messages that fail to process stay on the
// queue for redelivery; unreadable ones are dropped.
func (c *Consumer) receive(ctx context.Context) error {
	out, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return err
	}

	for _, msg := range out.Messages {
		var evt Event
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &evt); err != nil {
			logger.Warn("tracking: bad SQS message", "error", err)
			c.deleteMessage(ctx, msg.ReceiptHandle)
			continue
		}
		if err := c.process(ctx, evt); err != nil {
			logger.Error("tracking: process event", "type", string(evt.Type), "error", err)
			continue
		}
		c.deleteMessage(ctx, msg.ReceiptHandle)
	}
	return nil
}

func (c *Consumer) deleteMessage(ctx context.Context, handle *string) {
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		logger.Warn("tracking: delete SQS message", "error", err)
	}
}

func (c *Consumer) process(ctx context.Context, evt Event) error {
	switch evt.Type {
	case domain.EventClick:
		if evt.Click == nil {
			logger.Warn("tracking: click event without payload")
			return nil
		}
		return c.store.InsertClick(ctx, evt.Click)
	case domain.EventConversion:
		if evt.Conversion == nil {
			logger.Warn("tracking: conversion event without payload")
			return nil
		}
		if err := c.store.InsertConversion(ctx, evt.Conversion); err != nil {
			return err
		}
		logger.Info("tracking: conversion stored", "id", evt.Conversion.ID,
			"channel", evt.Conversion.Channel, "revenue", evt.Conversion.Revenue)
		return nil
	default:
		logger.Warn("tracking: unknown event type", "type", string(evt.Type))
		return nil
	}
}

// Package consumer ingests documents published to Kafka topics.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Zereker/docstore/internal/domain"
	"github.com/Zereker/docstore/internal/service"
	"github.com/Zereker/docstore/pkg/mq"
)

// Consumer pulls document payloads from Kafka and indexes them.
type Consumer struct {
	logger    *slog.Logger
	docs      *service.Service
	consumers []*mq.KafkaConsumer
}

// Config holds consumer configuration.
type Config struct {
	Kafka mq.KafkaConfig
}

// message is the wire format for ingestion topics. A message carries either
// a single document or a batch; batches go through partial-failure handling.
type message struct {
	Documents []domain.AddInput `json:"documents,omitempty"`
	Document  *domain.AddInput  `json:"document,omitempty"`
}

// NewConsumer creates the Kafka ingestion consumers.
func NewConsumer(docs *service.Service, cfg Config) (*Consumer, error) {
	c := &Consumer{
		logger: slog.Default().With("module", "consumer"),
		docs:   docs,
	}

	if !cfg.Kafka.Enabled {
		c.logger.Info("kafka disabled, consumer not started")
		return c, nil
	}

	for _, consumerConfig := range cfg.Kafka.Consumers {
		kc, err := mq.NewKafkaConsumer(cfg.Kafka.Brokers, consumerConfig, c.handleMessage)
		if err != nil {
			return nil, fmt.Errorf("failed to create consumer %s: %w", consumerConfig.Name, err)
		}
		c.consumers = append(c.consumers, kc)
	}

	return c, nil
}

// handleMessage decodes an ingestion payload and indexes its documents.
func (c *Consumer) handleMessage(ctx context.Context, topic string, payload []byte) error {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	inputs := msg.Documents
	if msg.Document != nil {
		inputs = append(inputs, *msg.Document)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("message has no documents")
	}

	results := c.docs.AddDocuments(ctx, inputs)

	added := 0
	for _, result := range results {
		if result.OK() {
			added++
		} else {
			c.logger.Warn("document rejected",
				"topic", topic,
				"index", result.Index,
				"error", result.Err,
			)
		}
	}

	c.logger.Info("ingested batch", "topic", topic, "total", len(inputs), "added", added)
	return nil
}

// Start starts all consumers.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.consumers) == 0 {
		c.logger.Info("no consumers configured, skipping start")
		return nil
	}

	c.logger.Info("starting consumers", "count", len(c.consumers))

	g, ctx := errgroup.WithContext(ctx)
	for _, consumer := range c.consumers {
		consumer := consumer
		g.Go(func() error {
			return consumer.Start(ctx)
		})
	}

	return g.Wait()
}

// Stop stops all consumers.
func (c *Consumer) Stop() error {
	c.logger.Info("stopping consumers")

	for _, consumer := range c.consumers {
		if err := consumer.Stop(); err != nil {
			c.logger.Error("failed to stop consumer", "error", err)
		}
	}

	return nil
}

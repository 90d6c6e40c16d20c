package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Zereker/cvstore/internal/domain"
	"github.com/Zereker/cvstore/pkg/log"
	"github.com/Zereker/cvstore/pkg/mq"
)

// EventHandler 处理一条文档事件
type EventHandler func(ctx context.Context, event domain.DocumentEvent) error

// Consumer 文档事件消费者
type Consumer struct {
	logger   *slog.Logger
	handler  EventHandler
	consumer *mq.KafkaConsumer
}

// Config 消费者配置
type Config struct {
	Kafka mq.KafkaConfig
}

// NewConsumer 创建消费者。Kafka 未启用时返回的消费者只能通过 Handle 投递消息。
func NewConsumer(handler EventHandler, cfg Config) (*Consumer, error) {
	c := &Consumer{
		logger:  log.Logger("consumer"),
		handler: handler,
	}

	if !cfg.Kafka.Enabled {
		c.logger.Info("kafka disabled, consumer not started")
		return c, nil
	}

	kc, err := mq.NewKafkaConsumer(cfg.Kafka, c.Handle)
	if err != nil {
		return nil, err
	}
	c.consumer = kc

	return c, nil
}

// Handle 解码并分发一条消息，满足 mq.MessageHandler
func (c *Consumer) Handle(ctx context.Context, topic string, message []byte) error {
	var event domain.DocumentEvent
	if err := json.Unmarshal(message, &event); err != nil {
		// 无法解码的消息重试也不会成功，记录后跳过
		c.logger.Warn("skip malformed event", "topic", topic, "error", err)
		return nil
	}

	switch event.Type {
	case domain.EventUploaded, domain.EventDeleted:
	default:
		c.logger.Warn("skip unknown event", "topic", topic, "type", event.Type)
		return nil
	}

	if err := c.handler(ctx, event); err != nil {
		return fmt.Errorf("handle %s event for %s: %w", event.Type, event.FileID, err)
	}
	return nil
}

// Start 启动 Kafka 消费
func (c *Consumer) Start(ctx context.Context) error {
	if c.consumer == nil {
		c.logger.Info("no consumer configured, skipping start")
		return nil
	}

	c.logger.Info("starting consumer")
	return c.consumer.Start(ctx)
}

// Stop 停止消费
func (c *Consumer) Stop() error {
	c.logger.Info("stopping consumer")
	return c.consumer.Stop()
}

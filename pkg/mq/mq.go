package mq

import "context"

// MessageQueue 消息队列接口
type MessageQueue interface {
	// Publish 发布消息，key 决定分区
	Publish(ctx context.Context, topic, key string, message []byte) error
	Close() error
}

// MessageHandler 消息处理函数
type MessageHandler func(ctx context.Context, topic string, message []byte) error

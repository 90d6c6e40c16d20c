package mq

import (
	"context"
	"sync"
)

// Message 内存队列中的一条消息
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// InMemoryQueue 内存消息队列（用于测试和单机场景）
type InMemoryQueue struct {
	mu       sync.RWMutex
	handlers map[string][]MessageHandler
	messages map[string][]Message
}

// 确保 InMemoryQueue 实现 MessageQueue 接口
var _ MessageQueue = (*InMemoryQueue)(nil)

// NewInMemoryQueue 创建内存消息队列
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]MessageHandler),
		messages: make(map[string][]Message),
	}
}

// Publish 发布消息（同步处理）
func (q *InMemoryQueue) Publish(ctx context.Context, topic, key string, message []byte) error {
	q.mu.Lock()
	q.messages[topic] = append(q.messages[topic], Message{Topic: topic, Key: key, Value: message})
	handlers := append([]MessageHandler(nil), q.handlers[topic]...)
	q.mu.Unlock()

	// 同步调用所有 handlers
	for _, handler := range handlers {
		if err := handler(ctx, topic, message); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe 订阅 topic
func (q *InMemoryQueue) Subscribe(topic string, handler MessageHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
}

// Close 关闭
func (q *InMemoryQueue) Close() error {
	return nil
}

// GetMessages 获取指定 topic 的所有消息（用于测试）
func (q *InMemoryQueue) GetMessages(topic string) []Message {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]Message(nil), q.messages[topic]...)
}

// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"stratflow-go/internal/config"
	"stratflow-go/pkg/log"
	"stratflow-go/pkg/tasks"
)

// maxAttempts 是同一事件处理失败后允许的最大重试次数。
const maxAttempts = 3

// EventProcessor 是消费流程事件的处理器，与具体的索引实现解耦。
type EventProcessor interface {
	Process(ctx context.Context, evt tasks.ProcessEvent) error
}

// Producer 把流程事件写入 Kafka。
type Producer struct {
	writer *kafka.Writer
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers(cfg)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// PublishProcessEvent 发送一个流程事件。以 "租户/流程" 为 key，同一流程的事件有序。
func (p *Producer) PublishProcessEvent(ctx context.Context, evt tasks.ProcessEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.EntName + "/" + evt.ProcessID),
		Value: value,
	})
}

// Close 关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer 从 Kafka 读取流程事件并交给处理器，失败次数记录在 Redis 中。
type Consumer struct {
	reader    *kafka.Reader
	processor EventProcessor
	rdb       *redis.Client
}

// NewConsumer 创建一个消费者。
func NewConsumer(cfg config.KafkaConfig, processor EventProcessor, rdb *redis.Client) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: r, processor: processor, rdb: rdb}
}

// Run 循环消费直到 ctx 被取消。
func (c *Consumer) Run(ctx context.Context) {
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", c.reader.Config().Topic)
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}
		c.handle(ctx, m)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	var evt tasks.ProcessEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		// 消息格式错误，直接提交，避免阻塞队列
		c.commit(ctx, m)
		return
	}

	attemptsKey := fmt.Sprintf("kafka:attempts:%s", evt.EventID)
	if err := c.processor.Process(ctx, evt); err != nil {
		log.Errorf("处理流程事件失败: event=%s process=%s err=%v", evt.EventID, evt.ProcessID, err)
		attempts, incErr := c.rdb.Incr(ctx, attemptsKey).Result()
		if incErr != nil {
			// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
			return
		}
		_ = c.rdb.Expire(ctx, attemptsKey, 24*time.Hour).Err()
		if attempts >= maxAttempts {
			log.Errorf("流程事件多次失败(>=%d)，提交 offset 终止重试: event=%s", maxAttempts, evt.EventID)
			c.commit(ctx, m)
		}
		return
	}

	log.Infof("流程事件处理成功: action=%s process=%s", evt.Action, evt.ProcessID)
	_ = c.rdb.Del(ctx, attemptsKey).Err()
	c.commit(ctx, m)
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}

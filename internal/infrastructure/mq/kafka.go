package mq

import (
	"fmt"

	"ticketpos/internal/config"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// Publisher 消息投递接口，OutboxSender 依赖此接口
type Publisher interface {
	Publish(topic, key string, value []byte) error
}

// Producer 基于 sarama 同步生产者的 Publisher 实现
type Producer struct {
	producer sarama.SyncProducer
}

// NewProducer 创建 Kafka 同步生产者
func NewProducer(cfg *config.KafkaConfig) (*Producer, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll // 等待所有副本确认
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("创建 Kafka 生产者失败: %w", err)
	}
	return &Producer{producer: producer}, nil
}

// InitKafka 按配置初始化生产者，未启用时返回 nil
func InitKafka(cfg *config.KafkaConfig) *Producer {
	if !cfg.Enabled {
		log.Info("Kafka 未启用，支付事件不写入 outbox")
		return nil
	}

	producer, err := NewProducer(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Info("Kafka 生产者创建成功")
	return producer
}

// Publish 发送消息到 Kafka
func (p *Producer) Publish(topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	_, _, err := p.producer.SendMessage(msg)
	return err
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ds124wfegd/fractal-bot/internal/logger"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Producer interface {
	SendMessage(topic string, message interface{}) error
	Close() error
}

const (
	queueSize    = 256
	writeTimeout = 10 * time.Second
	closeTimeout = 5 * time.Second
)

var (
	ErrQueueFull      = errors.New("event queue is full")
	ErrProducerClosed = errors.New("producer is closed")
)

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaProducer queues messages and writes them from a single goroutine, so
// SendMessage never waits for the broker.
type kafkaProducer struct {
	writer messageWriter
	queue  chan kafka.Message
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newKafkaProducer(writer messageWriter) *kafkaProducer {
	ctx, cancel := context.WithCancel(context.Background())
	p := &kafkaProducer{
		writer: writer,
		queue:  make(chan kafka.Message, queueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.run(ctx)
	return p
}

func (p *kafkaProducer) run(ctx context.Context) {
	defer close(p.done)
	for msg := range p.queue {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := p.writer.WriteMessages(writeCtx, msg)
		cancel()
		if err != nil {
			logger.WithField("topic", msg.Topic).WithError(err).Warn("event not published")
		}
	}
}

// NewProducer connects to the first reachable broker and makes sure topic
// exists. When no broker answers a logging mock is returned so the bot keeps
// working without Kafka.
func NewProducer(brokers []string, topic string) Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	log := logger.WithFields(logrus.Fields{"brokers": brokers, "topic": topic})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var conn *kafka.Conn
	var err error
	for _, broker := range brokers {
		conn, err = kafka.DialContext(ctx, "tcp", broker)
		if err == nil {
			break
		}
	}
	if conn == nil {
		log.WithError(err).Warn("Kafka connection failed, using mock producer instead")
		return NewMockProducer()
	}
	defer conn.Close()

	// Создаем топик если не существует
	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		log.WithError(err).Info("Could not create topic (might already exist)")
	}

	log.Info("Connected to Kafka")
	return newKafkaProducer(writer)
}

func (p *kafkaProducer) SendMessage(topic string, message interface{}) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte("fractal-bot"),
		Value: messageBytes,
		Time:  time.Now(),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close flushes queued messages, giving up on them after closeTimeout.
func (p *kafkaProducer) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(closeTimeout):
		p.cancel()
		<-p.done
	}
	p.cancel()
	return p.writer.Close()
}

// Mock producer для работы без Kafka
type mockProducer struct{}

func NewMockProducer() Producer {
	return &mockProducer{}
}

func (m *mockProducer) SendMessage(topic string, message interface{}) error {
	logger.WithFields(logrus.Fields{"topic": topic, "message": message}).Debug("MOCK: event not published")
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}

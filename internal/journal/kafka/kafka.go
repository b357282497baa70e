// Package kafka publishes mau.Event records to a Kafka topic,
// adapting the teacher's fraud-alert producer
// (internal/fraud/kafka_producer.go in the retrieval pack) from
// publishing AntiCheatAlert messages to publishing game events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"mau/internal/mau"
)

// Config holds Kafka producer configuration (spec §4.6: a journal
// adapter owns its own delivery semantics).
type Config struct {
	Brokers        []string
	Topic          string
	MaxRetries     int
	RetryBackoff   time.Duration
	FlushFrequency time.Duration
	FlushMessages  int
	RequiredAcks   sarama.RequiredAcks
	Compression    sarama.CompressionCodec
	BatchSize      int
}

// Stats tracks producer delivery counters.
type Stats struct {
	EventsSent      int64
	EventsFailed    int64
	BytesSent       int64
	LastMessageTime time.Time
}

// eventMessage is the wire format published to Kafka.
type eventMessage struct {
	Kind      string `json:"kind"`
	GameID    string `json:"game_id"`
	PlayerID  string `json:"player_id,omitempty"`
	Data      string `json:"data,omitempty"`
	Ts        int64  `json:"ts"`
	Published int64  `json:"published_at"`
}

// Journal publishes mau.Event records asynchronously to Kafka. Add
// only appends to an in-memory buffer so it never suspends (spec §5);
// Send, called once per command after its Adds, drains the buffer
// into the async producer, where suspension is acceptable.
type Journal struct {
	async sarama.AsyncProducer
	topic string

	mu      sync.Mutex
	pending []mau.Event
	closed  bool
	stats   Stats
}

// New constructs a Kafka-backed journal. The underlying producer runs
// in async mode so Send does not block on broker round trips.
func New(cfg Config) (*Journal, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = false
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.Retry.Max = cfg.MaxRetries
	saramaCfg.Producer.Retry.Backoff = cfg.RetryBackoff
	saramaCfg.Producer.Flush.Frequency = cfg.FlushFrequency
	saramaCfg.Producer.Flush.Messages = cfg.FlushMessages
	saramaCfg.Producer.RequiredAcks = cfg.RequiredAcks
	saramaCfg.Producer.Compression = cfg.Compression
	saramaCfg.Producer.Flush.MaxMessages = cfg.BatchSize

	if cfg.RequiredAcks == sarama.WaitForAll {
		saramaCfg.Producer.Idempotent = true
		saramaCfg.Net.MaxOpenRequests = 1
	}

	async, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("mau/journal/kafka: new async producer: %w", err)
	}

	j := &Journal{async: async, topic: cfg.Topic}
	go j.handleErrors()
	return j, nil
}

func (j *Journal) handleErrors() {
	for err := range j.async.Errors() {
		j.mu.Lock()
		j.stats.EventsFailed++
		j.mu.Unlock()
		_ = err
	}
}

// Add buffers an event without touching the network (mau.Journal).
func (j *Journal) Add(event mau.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pending = append(j.pending, event)
}

// Send flushes every buffered event to Kafka (mau.Journal). Ordering
// within one game's buffer is preserved by keying on GameID, which
// Sarama's default partitioner sends to the same partition.
func (j *Journal) Send(ctx context.Context) error {
	j.mu.Lock()
	if j.closed || len(j.pending) == 0 {
		j.mu.Unlock()
		return nil
	}
	batch := j.pending
	j.pending = nil
	j.mu.Unlock()

	for _, evt := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := eventMessage{
			Kind:      string(evt.Kind),
			GameID:    evt.GameID,
			PlayerID:  evt.PlayerID,
			Data:      evt.Data,
			Ts:        evt.Ts,
			Published: time.Now().UnixNano(),
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("mau/journal/kafka: marshal event: %w", err)
		}

		kafkaMsg := &sarama.ProducerMessage{
			Topic: j.topic,
			Key:   sarama.StringEncoder(evt.GameID),
			Value: sarama.ByteEncoder(data),
			Headers: []sarama.RecordHeader{
				{Key: []byte("kind"), Value: []byte(evt.Kind)},
			},
			Timestamp: time.Now(),
		}

		select {
		case j.async.Input() <- kafkaMsg:
		case <-ctx.Done():
			return ctx.Err()
		}

		j.mu.Lock()
		j.stats.EventsSent++
		j.stats.BytesSent += int64(len(data))
		j.stats.LastMessageTime = time.Now()
		j.mu.Unlock()
	}
	return nil
}

// Stats returns current delivery counters.
func (j *Journal) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

// Close shuts the producer down gracefully.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()
	return j.async.Close()
}

// EnsureTopic creates the event topic if it doesn't already exist.
func EnsureTopic(brokers []string, topic string, partitions int32, replicationFactor int16) error {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_0_0_0

	admin, err := sarama.NewClusterAdmin(brokers, cfg)
	if err != nil {
		return fmt.Errorf("mau/journal/kafka: new cluster admin: %w", err)
	}
	defer admin.Close()

	detail := &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	}
	if err := admin.CreateTopic(topic, detail, false); err != nil {
		if topicErr, ok := err.(*sarama.TopicError); ok && topicErr.Err == sarama.ErrTopicAlreadyExists {
			return nil
		}
		return fmt.Errorf("mau/journal/kafka: create topic: %w", err)
	}
	return nil
}

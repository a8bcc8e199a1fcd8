// Package publish delivers roster events to Kafka off the request path.
package publish

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/signup/internal/events"
)

var (
	// ErrQueueFull is returned by Publish when the dispatcher cannot accept more events.
	ErrQueueFull = errors.New("roster event queue full")
	// ErrDispatcherStopped is returned by Publish once the dispatcher has begun draining.
	ErrDispatcherStopped = errors.New("roster event dispatcher stopped")
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// SchemaRegistrar resolves schema ids for a subject.
type SchemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// Config tunes the dispatcher.
type Config struct {
	Topic         string
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	DrainTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 25
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 2 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 10 * time.Second
	}
	return c
}

// Option configures optional behaviour for the Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the logger used to report delivery errors.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Dispatcher buffers roster events and flushes them to Kafka in batches.
type Dispatcher struct {
	cfg              Config
	producer         messageWriter
	registry         SchemaRegistrar
	logger           *zap.Logger
	queue            chan events.RosterEvent
	schemaIDCache    sync.Map
	mu               sync.RWMutex
	stopped          bool
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher. registry may be nil, in which case schema id 0 is used.
func NewDispatcher(producer messageWriter, registry SchemaRegistrar, cfg Config, opts ...Option) *Dispatcher {
	if registry == nil {
		registry = StaticRegistry{}
	}
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		cfg:              cfg,
		producer:         producer,
		registry:         registry,
		logger:           zap.NewNop(),
		queue:            make(chan events.RosterEvent, cfg.QueueSize),
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish enqueues event without blocking. A full queue or a stopped dispatcher drops
// the event.
func (d *Dispatcher) Publish(_ context.Context, event events.RosterEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		droppedCounter.Inc()
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- event:
		queueDepthGauge.Set(float64(len(d.queue)))
		return nil
	default:
		droppedCounter.Inc()
		return ErrQueueFull
	}
}

// Start runs the flush loop until ctx is cancelled, then drains what is queued.
// It should be called in a goroutine. Cancel ctx only once no more events will be
// published; later calls to Publish fail with ErrDispatcherStopped.
//
// A flush that is in flight when ctx is cancelled runs to completion under its own
// deadline.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	batch := make([]events.RosterEvent, 0, d.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			d.stop()
			d.drain(batch)
			return
		case event := <-d.queue:
			batch = append(batch, event)
			if len(batch) >= d.cfg.BatchSize {
				d.flushDetached(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.flushDetached(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// Wait waits until the dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

// stop closes Publish. Holding the write lock waits out in-flight Publish calls, so
// drain sees every accepted event.
func (d *Dispatcher) stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

func (d *Dispatcher) flushDetached(ctx context.Context, batch []events.RosterEvent) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.DrainTimeout)
	defer cancel()
	d.flush(flushCtx, batch)
}

func (d *Dispatcher) drain(batch []events.RosterEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DrainTimeout)
	defer cancel()

	for {
		select {
		case event := <-d.queue:
			batch = append(batch, event)
			if len(batch) >= d.cfg.BatchSize {
				d.flush(ctx, batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				d.flush(ctx, batch)
			}
			return
		}
	}
}

func (d *Dispatcher) flush(ctx context.Context, batch []events.RosterEvent) {
	start := time.Now()
	defer func() {
		batchDuration.Observe(time.Since(start).Seconds())
		queueDepthGauge.Set(float64(len(d.queue)))
	}()

	msgs, err := d.encode(ctx, batch)
	if err != nil {
		d.logger.Error("encode roster events", zap.Int("count", len(batch)), zap.Error(err))
		failedCounter.Add(float64(len(batch)))
		return
	}

	if err := d.deliver(ctx, msgs); err != nil {
		d.logger.Error("deliver roster events",
			zap.String("topic", d.cfg.Topic),
			zap.Int("count", len(msgs)),
			zap.Error(err),
		)
		failedCounter.Add(float64(len(msgs)))
		return
	}
	publishedCounter.Add(float64(len(msgs)))
}

func (d *Dispatcher) deliver(ctx context.Context, msgs []kafka.Message) error {
	var err error
	backoff := d.cfg.RetryBackoff
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if err = d.producer.WriteMessages(ctx, d.cfg.Topic, msgs...); err == nil {
			return nil
		}
		if attempt == d.cfg.MaxAttempts {
			break
		}
		d.logger.Warn("roster event delivery attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

func (d *Dispatcher) encode(ctx context.Context, batch []events.RosterEvent) ([]kafka.Message, error) {
	subject := subjectFor(d.cfg.Topic)
	msgs := make([]kafka.Message, 0, len(batch))
	for _, event := range batch {
		schema, ok := schemaCatalog[event.EventType]
		if !ok {
			return nil, fmt.Errorf("no schema for event_type=%s", event.EventType)
		}
		schemaID, err := d.schemaID(ctx, subject, schema)
		if err != nil {
			return nil, fmt.Errorf("resolve schema %s: %w", subject, err)
		}

		payload, err := json.Marshal(event)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.Activity),
			Value: encodeWireFormat(schemaID, payload),
			Time:  event.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "schema_subject", Value: []byte(subject)},
				{Key: "event_id", Value: []byte(event.EventID)},
			},
		})
	}
	return msgs, nil
}

func (d *Dispatcher) schemaID(ctx context.Context, subject, schema string) (int, error) {
	cacheKey := subject + "::" + schema
	if cached, ok := d.schemaIDCache.Load(cacheKey); ok {
		return cached.(int), nil
	}
	id, err := d.registry.EnsureSchema(ctx, subject, schema)
	if err != nil {
		return 0, err
	}
	d.schemaIDCache.Store(cacheKey, id)
	return id, nil
}

// encodeWireFormat applies Confluent framing: magic byte 0, big-endian schema id, payload.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}

package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

const AppSource = "mailsync"

const (
	DefaultMessageTTL          = 240 * time.Hour
	DefaultMaxRetries          = 3
	DefaultPublishTimeout      = 5 * time.Second
	DefaultReconnectBackoff    = time.Second
	DefaultMaxReconnectBackoff = 30 * time.Second
)

type PublisherConfig struct {
	MessageTTL          time.Duration // unconsumed events move to the DLQ after this
	MaxRetries          int
	PublishTimeout      time.Duration // wait for the broker confirm
	ReconnectBackoff    time.Duration
	MaxReconnectBackoff time.Duration
}

func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		MessageTTL:          DefaultMessageTTL,
		MaxRetries:          DefaultMaxRetries,
		PublishTimeout:      DefaultPublishTimeout,
		ReconnectBackoff:    DefaultReconnectBackoff,
		MaxReconnectBackoff: DefaultMaxReconnectBackoff,
	}
}

// RabbitMQPublisher publishes confirmed, persistent events. A background
// loop redials when the broker drops the connection; Close stops it.
type RabbitMQPublisher struct {
	url      string
	log      logger.Logger
	cfg      PublisherConfig
	topology topology

	connMu  sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	acks    chan amqp091.Confirmation

	// serializes publish+confirm pairs on the single channel
	publishMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

func NewRabbitMQPublisher(url string, log logger.Logger, cfg *PublisherConfig) (*RabbitMQPublisher, error) {
	if cfg == nil {
		cfg = DefaultPublisherConfig()
	}

	p := &RabbitMQPublisher{
		url:      url,
		log:      log,
		cfg:      *cfg,
		topology: mailsyncTopology(cfg.MessageTTL),
		done:     make(chan struct{}),
	}
	if err := p.dial(); err != nil {
		return nil, err
	}
	go p.watchConnection()
	return p, nil
}

// PublishEvent wraps data in the event envelope and publishes it on the
// mailsync topic exchange, routed by event type.
func (p *RabbitMQPublisher) PublishEvent(ctx context.Context, entityId string, entityType enum.EntityType, eventType string, data interface{}) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.PublishEvent")
	defer span.Finish()
	tracing.TagComponentPublisher(span)
	tracing.TagEntity(span, entityId)
	span.SetTag("eventType", eventType)

	event := NewEvent(ctx, entityId, entityType, eventType, data)
	tracing.LogObjectAsJson(span, "event", event)

	body, err := json.Marshal(event)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "marshal event")
	}

	if err := p.publishWithRetry(ctx, ExchangeMailsync, eventType, body); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// NewEvent builds the envelope shared by every publisher.
func NewEvent(ctx context.Context, entityId string, entityType enum.EntityType, eventType string, data interface{}) dto.Event {
	return dto.Event{
		Event: dto.EventDetails{
			Id:         utils.GenerateNanoIdWithPrefix("event", 21),
			EntityId:   entityId,
			EntityType: entityType,
			EventType:  eventType,
			Data:       data,
		},
		Metadata: dto.EventMetadata{
			UberTraceId: tracing.GetUberTraceId(ctx),
			AppSource:   AppSource,
			Timestamp:   utils.Now().Format(time.RFC3339),
		},
	}
}

func (p *RabbitMQPublisher) publishWithRetry(ctx context.Context, exchange, routingKey string, body []byte) error {
	var err error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		if err = p.publishConfirmed(ctx, exchange, routingKey, body); err == nil {
			return nil
		}
		p.log.Warnw("Publish attempt failed", "attempt", attempt, "routing_key", routingKey, "error", err.Error())

		if attempt == p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return errors.Wrapf(err, "publish %s failed after %d attempts", routingKey, p.cfg.MaxRetries)
}

func (p *RabbitMQPublisher) publishConfirmed(ctx context.Context, exchange, routingKey string, body []byte) error {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	ch, acks, err := p.currentChannel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp091.Publishing{
		DeliveryMode: amqp091.Persistent,
		ContentType:  "application/json",
		Timestamp:    utils.Now(),
		Body:         body,
	})
	if err != nil {
		return errors.Wrap(err, "publish")
	}

	timer := time.NewTimer(p.cfg.PublishTimeout)
	defer timer.Stop()

	select {
	case confirm, ok := <-acks:
		if !ok {
			return errors.New("channel closed before confirm")
		}
		if !confirm.Ack {
			return errors.New("broker nacked message")
		}
		return nil
	case <-timer.C:
		return errors.New("timed out waiting for publish confirm")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// currentChannel returns a usable confirm channel, redialing or reopening
// as needed.
func (p *RabbitMQPublisher) currentChannel() (*amqp091.Channel, chan amqp091.Confirmation, error) {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.dialLocked(); err != nil {
			return nil, nil, err
		}
	} else if p.channel == nil || p.channel.IsClosed() {
		if err := p.openChannelLocked(); err != nil {
			return nil, nil, err
		}
	}
	return p.channel, p.acks, nil
}

func (p *RabbitMQPublisher) dial() error {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	return p.dialLocked()
}

// ensureConnected dials unless a publisher already reconnected.
func (p *RabbitMQPublisher) ensureConnected() error {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return nil
	}
	return p.dialLocked()
}

func (p *RabbitMQPublisher) dialLocked() error {
	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return errors.Wrap(err, "connect to RabbitMQ")
	}

	setup, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "open setup channel")
	}
	err = p.topology.declare(setup)
	setup.Close()
	if err != nil {
		conn.Close()
		return err
	}

	p.conn = conn
	if err := p.openChannelLocked(); err != nil {
		conn.Close()
		return err
	}
	return nil
}

func (p *RabbitMQPublisher) openChannelLocked() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open publish channel")
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return errors.Wrap(err, "enable publisher confirms")
	}
	p.acks = ch.NotifyPublish(make(chan amqp091.Confirmation, 1))
	p.channel = ch
	return nil
}

// watchConnection redials with capped exponential backoff whenever the
// broker closes the connection.
func (p *RabbitMQPublisher) watchConnection() {
	for {
		p.connMu.Lock()
		conn := p.conn
		p.connMu.Unlock()

		closed := conn.NotifyClose(make(chan *amqp091.Error, 1))
		select {
		case <-p.done:
			return
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				// graceful close
				return
			}
			p.log.Warnw("RabbitMQ connection lost, reconnecting", "error", amqpErr.Error())
		}

		if !p.redial() {
			return
		}
	}
}

func (p *RabbitMQPublisher) redial() bool {
	backoff := p.cfg.ReconnectBackoff
	for {
		err := p.ensureConnected()
		if err == nil {
			p.log.Info("Reconnected to RabbitMQ")
			return true
		}
		p.log.Errorw("RabbitMQ reconnect failed", "retry_in", backoff.String(), "error", err.Error())

		select {
		case <-p.done:
			return false
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, p.cfg.MaxReconnectBackoff)
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit || next <= 0 {
		return limit
	}
	return next
}

// Close stops the reconnect loop and closes the channel and connection.
func (p *RabbitMQPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })

	p.connMu.Lock()
	defer p.connMu.Unlock()

	var err error
	if p.channel != nil && !p.channel.IsClosed() {
		if chErr := p.channel.Close(); chErr != nil {
			p.log.Warnw("Failed to close publish channel", "error", chErr.Error())
			err = chErr
		}
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if connErr := p.conn.Close(); connErr != nil {
			p.log.Warnw("Failed to close RabbitMQ connection", "error", connErr.Error())
			if err == nil {
				err = connErr
			}
		}
	}
	return err
}

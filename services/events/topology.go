package events

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeMailsync   = "mailsync"
	ExchangeDeadLetter = "mailsync-dead-letter"

	QueueMailsyncEvents = "mailsync-events"
	DLQMailsyncEvents   = QueueMailsyncEvents + "-dlq"

	RoutingKeyAllEvents  = "mailsync.#"
	RoutingKeyDeadLetter = "dead-letter"
)

type exchangeDecl struct {
	name string
	kind string
}

type queueDecl struct {
	name string
	args amqp091.Table
}

type bindingDecl struct {
	queue    string
	key      string
	exchange string
}

// topology is everything the publisher declares on (re)connect. All of it
// is durable and idempotent to redeclare.
type topology struct {
	exchanges []exchangeDecl
	queues    []queueDecl
	bindings  []bindingDecl
}

func mailsyncTopology(messageTTL time.Duration) topology {
	return topology{
		exchanges: []exchangeDecl{
			{name: ExchangeDeadLetter, kind: amqp091.ExchangeDirect},
			{name: ExchangeMailsync, kind: amqp091.ExchangeTopic},
		},
		queues: []queueDecl{
			{name: DLQMailsyncEvents},
			{name: QueueMailsyncEvents, args: deadLetterArgs(messageTTL)},
		},
		bindings: []bindingDecl{
			{queue: DLQMailsyncEvents, key: RoutingKeyDeadLetter, exchange: ExchangeDeadLetter},
			{queue: QueueMailsyncEvents, key: RoutingKeyAllEvents, exchange: ExchangeMailsync},
		},
	}
}

// deadLetterArgs expire messages after ttl into the dead-letter exchange.
func deadLetterArgs(ttl time.Duration) amqp091.Table {
	return amqp091.Table{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": RoutingKeyDeadLetter,
		"x-message-ttl":             ttl.Milliseconds(),
	}
}

func (t topology) declare(ch *amqp091.Channel) error {
	for _, ex := range t.exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return errors.Wrapf(err, "declare exchange %s", ex.name)
		}
	}
	for _, q := range t.queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return errors.Wrapf(err, "declare queue %s", q.name)
		}
	}
	for _, b := range t.bindings {
		if err := ch.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return errors.Wrapf(err, "bind queue %s to %s", b.queue, b.exchange)
		}
	}
	return nil
}

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/logger"
)

var (
	_ interfaces.EventPublisher = (*RabbitMQPublisher)(nil)
	_ interfaces.EventPublisher = (*NoopPublisher)(nil)
)

func testLogger() logger.Logger {
	l := logger.NewAppLogger(&logger.Config{DevMode: true, LogLevel: "error"})
	l.InitLogger()
	return l
}

func TestNewEvent(t *testing.T) {
	data := dto.SyncCompletedData{AccountID: "macc_1", Folder: "INBOX", Synced: 3}
	event := NewEvent(context.Background(), "macc_1", enum.MAIL_ACCOUNT, dto.EventSyncCompleted, data)

	assert.NotEmpty(t, event.Event.Id)
	assert.Equal(t, "macc_1", event.Event.EntityId)
	assert.Equal(t, enum.MAIL_ACCOUNT, event.Event.EntityType)
	assert.Equal(t, dto.EventSyncCompleted, event.Event.EventType)
	assert.Equal(t, AppSource, event.Metadata.AppSource)
	_, err := time.Parse(time.RFC3339, event.Metadata.Timestamp)
	assert.NoError(t, err)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"eventType":"mailsync.sync.completed"`)
	assert.Contains(t, string(raw), `"synced":3`)
}

func TestNewEventsService_NoURLUsesNoop(t *testing.T) {
	svc, err := NewEventsService("", testLogger(), nil)
	require.NoError(t, err)

	_, ok := svc.Publisher.(*NoopPublisher)
	assert.True(t, ok)
	assert.NoError(t, svc.Publisher.PublishEvent(context.Background(), "macc_1", enum.MAIL_ACCOUNT, dto.EventAccountCreated, nil))
	assert.NoError(t, svc.Close())
}

func TestDeadLetterArgs(t *testing.T) {
	args := deadLetterArgs(time.Minute)
	assert.Equal(t, ExchangeDeadLetter, args["x-dead-letter-exchange"])
	assert.Equal(t, RoutingKeyDeadLetter, args["x-dead-letter-routing-key"])
	assert.Equal(t, int64(60000), args["x-message-ttl"])
}

func TestMailsyncTopology(t *testing.T) {
	topo := mailsyncTopology(time.Hour)

	require.Len(t, topo.exchanges, 2)
	assert.Equal(t, exchangeDecl{name: ExchangeMailsync, kind: "topic"}, topo.exchanges[1])

	require.Len(t, topo.queues, 2)
	assert.Nil(t, topo.queues[0].args, "dead-letter queue has no TTL")
	assert.Equal(t, int64(time.Hour.Milliseconds()), topo.queues[1].args["x-message-ttl"])

	assert.Contains(t, topo.bindings, bindingDecl{queue: QueueMailsyncEvents, key: RoutingKeyAllEvents, exchange: ExchangeMailsync})
	assert.Contains(t, topo.bindings, bindingDecl{queue: DLQMailsyncEvents, key: RoutingKeyDeadLetter, exchange: ExchangeDeadLetter})
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextBackoff(20*time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextBackoff(30*time.Second, 30*time.Second))
}

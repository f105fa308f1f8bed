package zaplog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublisher_LogsEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewPublisher(zap.New(core))

	err := p.Publish(context.Background(), "ledger.account_created", "addr", map[string]int{"amount": 3})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	entries := logs.FilterMessage("event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ledger.account_created", fields["topic"])
	assert.Equal(t, "addr", fields["key"])
	assert.Equal(t, `{"amount":3}`, fields["payload"])
	assert.Equal(t, "events", entries[0].LoggerName)
}

func TestPublisher_EncodeError(t *testing.T) {
	p := NewPublisher(nil)
	err := p.Publish(context.Background(), "t", "k", make(chan int))
	assert.Error(t, err)
}

package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/vigencias-bridge/internal/model"
	"github.com/t77yq/vigencias-bridge/internal/testutil"
)

func TestPublisher_EventsAndResults(t *testing.T) {
	_, _, js := testutil.StartJetStream(t)

	p, err := NewPublisher(js, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, testutil.WaitForStream(t, js, StreamName, 5*time.Second))

	ctx := context.Background()
	require.NoError(t, p.PublishEvent(ctx, model.Event{
		ID:        "ev-1",
		Timestamp: time.Now(),
		Level:     model.EventLevelSuccess,
		Message:   "copy_database completed",
	}))
	require.NoError(t, p.PublishResult(ctx, "copy_database", &model.OperationResult{Success: false, Error: "locked"}))

	events, err := testutil.ConsumeMessages(js, "vigencias.log", 500*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, events, 1)
	var event model.Event
	require.NoError(t, json.Unmarshal(events[0].Data, &event))
	assert.Equal(t, model.EventLevelSuccess, event.Level)
	assert.Equal(t, "copy_database completed", event.Message)

	results, err := testutil.ConsumeMessages(js, "vigencias.result.copy_database", 500*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, results, 1)
	var msg ResultMessage
	require.NoError(t, json.Unmarshal(results[0].Data, &msg))
	assert.Equal(t, "copy_database", msg.Operation)
	assert.False(t, msg.Result.Success)
	assert.Equal(t, "locked", msg.Result.Error)
}

func TestPublisher_SetupIsIdempotent(t *testing.T) {
	_, _, js := testutil.StartJetStream(t)

	_, err := NewPublisher(js, "custom", zaptest.NewLogger(t))
	require.NoError(t, err)
	p, err := NewPublisher(js, "custom", zaptest.NewLogger(t))
	require.NoError(t, err)

	info, err := js.StreamInfo(StreamName)
	require.NoError(t, err)
	assert.Equal(t, []string{"custom.>"}, info.Config.Subjects)
	assert.Equal(t, "custom.result.process_vigencias", p.ResultSubject("process_vigencias"))
}

func TestPublisher_SubscribeEvents(t *testing.T) {
	_, _, js := testutil.StartJetStream(t)

	p, err := NewPublisher(js, "", zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan model.Event, 1)
	require.NoError(t, p.SubscribeEvents(ctx, func(e model.Event) { received <- e }))

	require.NoError(t, p.PublishEvent(ctx, model.Event{ID: "ev-2", Level: model.EventLevelCritical, Message: "boom"}))

	select {
	case e := <-received:
		assert.Equal(t, "ev-2", e.ID)
		assert.Equal(t, model.EventLevelCritical, e.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.PublishEvent(context.Background(), model.Event{}))
	assert.NoError(t, p.PublishResult(context.Background(), "copy_database", &model.OperationResult{}))
	assert.Error(t, p.SubscribeEvents(context.Background(), func(model.Event) {}))
	p.Close()

	disabled, err := Connect("", "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, disabled)
}

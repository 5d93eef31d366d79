package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/vigencias-bridge/internal/model"
)

const (
	// StreamName is the JetStream stream holding events and results
	StreamName = "VIGENCIAS"

	// DefaultSubjectPrefix roots every published subject
	DefaultSubjectPrefix = "vigencias"

	streamMaxAge     = 7 * 24 * time.Hour
	streamMaxMsgSize = 1 * 1024 * 1024
)

// ResultMessage is the payload published for a finished operation
type ResultMessage struct {
	Operation string                 `json:"operation"`
	Timestamp time.Time              `json:"timestamp"`
	Result    *model.OperationResult `json:"result"`
}

// Publisher forwards events and operation results to JetStream. A nil
// Publisher is valid and publishes nothing.
type Publisher struct {
	logger *zap.Logger
	nc     *nats.Conn
	js     nats.JetStreamContext
	prefix string
}

// Connect dials url and prepares the stream. An empty url returns a nil
// Publisher.
func Connect(url, prefix string, logger *zap.Logger) (*Publisher, error) {
	if url == "" {
		logger.Info("Event publishing disabled")
		return nil, nil
	}

	nc, err := nats.Connect(url,
		nats.Name("vigencias"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p, err := NewPublisher(js, prefix, logger)
	if err != nil {
		nc.Close()
		return nil, err
	}
	p.nc = nc
	return p, nil
}

// NewPublisher creates a publisher on an existing JetStream context
func NewPublisher(js nats.JetStreamContext, prefix string, logger *zap.Logger) (*Publisher, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	p := &Publisher{
		logger: logger.Named("notify"),
		js:     js,
		prefix: prefix,
	}
	if err := p.setup(); err != nil {
		return nil, err
	}
	return p, nil
}

// LogSubject is where events are published
func (p *Publisher) LogSubject() string {
	return p.prefix + ".log"
}

// ResultSubject is where results of operation are published
func (p *Publisher) ResultSubject(operation string) string {
	return p.prefix + ".result." + operation
}

// setup creates or updates the stream
func (p *Publisher) setup() error {
	subjects := []string{p.prefix + ".>"}

	info, err := p.js.StreamInfo(StreamName)
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	if info == nil {
		_, err = p.js.AddStream(&nats.StreamConfig{
			Name:       StreamName,
			Subjects:   subjects,
			Retention:  nats.LimitsPolicy,
			MaxAge:     streamMaxAge,
			MaxMsgs:    -1,
			MaxBytes:   -1,
			Discard:    nats.DiscardOld,
			MaxMsgSize: streamMaxMsgSize,
			Storage:    nats.FileStorage,
			Replicas:   1,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
		}
		p.logger.Info("Created stream", zap.String("name", StreamName))
		return nil
	}

	config := info.Config
	config.Subjects = subjects
	config.MaxAge = streamMaxAge
	config.MaxMsgSize = streamMaxMsgSize
	if _, err := p.js.UpdateStream(&config); err != nil {
		return fmt.Errorf("failed to update stream %s: %w", StreamName, err)
	}
	p.logger.Info("Updated stream", zap.String("name", StreamName))
	return nil
}

// PublishEvent publishes a log event
func (p *Publisher) PublishEvent(ctx context.Context, event model.Event) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, p.LogSubject(), event)
}

// PublishResult publishes the outcome of operation
func (p *Publisher) PublishResult(ctx context.Context, operation string, result *model.OperationResult) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, p.ResultSubject(operation), ResultMessage{
		Operation: operation,
		Timestamp: time.Now(),
		Result:    result,
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.logger.Error("Failed to publish message",
			zap.String("subject", subject),
			zap.Error(err))
		return err
	}
	return nil
}

// SubscribeEvents calls handler for every event published from now on until
// ctx is done.
func (p *Publisher) SubscribeEvents(ctx context.Context, handler func(model.Event)) error {
	if p == nil {
		return errors.New("event publishing disabled")
	}

	sub, err := p.js.Subscribe(p.LogSubject(), func(msg *nats.Msg) {
		var event model.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			p.logger.Error("Failed to unmarshal event", zap.Error(err))
			msg.Ack()
			return
		}

		handler(event)
		msg.Ack()
	}, nats.DeliverNew())
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()

	return nil
}

// Close drains the connection opened by Connect
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Error("Failed to drain NATS connection", zap.Error(err))
	}
}

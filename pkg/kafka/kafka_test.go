package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TriRecover/pkg/logger"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type flakyHandler struct {
	topic    string
	failures int
	calls    int
	err      error
}

func (h *flakyHandler) Topic() string { return h.topic }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.calls <= h.failures {
		return h.err
	}
	return nil
}

func TestProducer_PublishEncodes(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "none")

	require.NoError(t, p.Publish(context.Background(), "events", []byte("2024-01-02"), map[string]int{"n": 1}))
	require.NoError(t, p.PublishBatch(context.Background(), "events", []Message{
		{Key: []byte("a"), Value: "raw"},
		{Key: []byte("b"), Value: []byte("bytes")},
	}))
	require.NoError(t, p.PublishBatch(context.Background(), "events", nil))

	require.Len(t, w.msgs, 3)
	assert.Equal(t, "events", w.msgs[0].Topic)
	assert.Equal(t, "2024-01-02", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"n":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, "bytes", string(w.msgs[2].Value))
}

func TestProducer_WriteErrorWrapped(t *testing.T) {
	cause := errors.New("broker down")
	p := NewProducerWithWriter(&fakeWriter{err: cause}, "gzip")

	err := p.PublishMessage(context.Background(), "logs", []string{"x"})
	assert.ErrorIs(t, err, cause)
}

func newTestConsumer(t *testing.T, retries int) *Consumer {
	t.Helper()
	c, err := NewConsumer(logger.Nop(),
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retries, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestNewProducer_ValidatesConfig(t *testing.T) {
	_, err := NewProducer()
	assert.ErrorContains(t, err, "brokers are required")

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithRequiredAcks(2))
	assert.ErrorContains(t, err, "required acks")

	cfg := DefaultProducerConfig()
	WithBatchSize(0)(&cfg)
	WithBatchTimeout(-time.Second)(&cfg)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 50*time.Millisecond, cfg.BatchTimeout)
}

func TestConsumer_HandleRetriesThenSucceeds(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &flakyHandler{topic: "entries", failures: 2, err: errors.New("store busy")}
	c.RegisterHandler(h)

	attempts, err := c.handle(context.Background(), &message{topic: "entries"})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestConsumer_HandleGivesUp(t *testing.T) {
	c := newTestConsumer(t, 1)
	var errs int
	c.WithConsumerHook(HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { errs++ }})
	h := &flakyHandler{topic: "entries", failures: 10, err: errors.New("store busy")}
	c.RegisterHandler(h)

	attempts, err := c.handle(context.Background(), &message{topic: "entries"})
	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, errs, "one per retried attempt plus the final failure")
}

func TestConsumer_PermanentErrorSkipsRetry(t *testing.T) {
	c := newTestConsumer(t, 5)
	h := &flakyHandler{topic: "entries", failures: 10, err: Permanent(errors.New("bad json"))}
	c.RegisterHandler(h)

	attempts, err := c.handle(context.Background(), &message{topic: "entries"})
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, attempts)
}

func TestHookChain_PanicBecomesError(t *testing.T) {
	chain := NewHookChain(nil, HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
		panic("boom")
	}})

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "ERR_PANIC", hookErr.Code)
}

func TestLoggingHook_TraceID(t *testing.T) {
	h := LoggingHook(logger.Nop(), 0)
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}

	ctx, _, _, err := h.BeforeHandle(context.Background(), "t", km, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceID(ctx))
	h.AfterHandle(ctx, "t", km, nil, errors.New("x"))
}

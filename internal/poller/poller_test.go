package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fjod/foodcart/internal/domain"
	"github.com/fjod/foodcart/internal/session"
	"github.com/fjod/foodcart/internal/storage"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

type fakeReader struct {
	messages []kafkaGo.Message
	err      error
	closed   bool
	reads    int
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafkaGo.Message, error) {
	r.reads++
	if len(r.messages) == 0 {
		if r.err != nil {
			return kafkaGo.Message{}, r.err
		}
		<-ctx.Done()
		return kafkaGo.Message{}, ctx.Err()
	}
	m := r.messages[0]
	r.messages = r.messages[1:]
	return m, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type recordingClearer struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (c *recordingClearer) Clear(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.cleared = append(c.cleared, sessionID)
	return nil
}

func TestPoller_ClearsSessionFromMessage(t *testing.T) {
	reader := &fakeReader{messages: []kafkaGo.Message{
		{Value: []byte(`{"order_id":"o-1","session_id":"sess-1"}`)},
		{Value: []byte(`not json`)},
		{Value: []byte(`{"order_id":"o-2"}`)},
		{Value: []byte(`{"session_id":42}`)},
		{Value: []byte(`{"session_id":"sess-2"}`)},
	}}
	clearer := &recordingClearer{}
	p := &Poller{carts: clearer, reader: reader, logger: zap.NewNop()}

	for i := 0; i < 5; i++ {
		p.clearConfirmedCart(context.Background())
	}

	assert.DeepEqual(t, []string{"sess-1", "sess-2"}, clearer.cleared)
}

func TestPoller_ClearErrorIsSwallowed(t *testing.T) {
	reader := &fakeReader{messages: []kafkaGo.Message{{Value: []byte(`{"session_id":"sess-1"}`)}}}
	p := &Poller{carts: &recordingClearer{err: errors.New("boom")}, reader: reader, logger: zap.NewNop()}

	p.clearConfirmedCart(context.Background())
	assert.Equal(t, 0, len(reader.messages))
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	reader := &fakeReader{}
	p := &Poller{carts: &recordingClearer{}, reader: reader, logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}

	p.Close()
	assert.Assert(t, reader.closed)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, minReadBackoff, nextBackoff(0))
	assert.Equal(t, 2*minReadBackoff, nextBackoff(minReadBackoff))
	assert.Equal(t, maxReadBackoff, nextBackoff(maxReadBackoff))
	assert.Equal(t, maxReadBackoff, nextBackoff(4*time.Second))
}

func TestPoller_BacksOffWhileBrokerIsDown(t *testing.T) {
	reader := &fakeReader{err: errors.New("connection refused")}
	p := &Poller{carts: &recordingClearer{}, reader: reader, logger: zap.NewNop()}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	// 100ms, 200ms, then 400ms exceeds the window: at most a handful of reads.
	assert.Assert(t, reader.reads >= 2, "reads: %d", reader.reads)
	assert.Assert(t, reader.reads <= 5, "reads: %d", reader.reads)
}

func TestPoller_SuccessfulReadResetsBackoff(t *testing.T) {
	reader := &fakeReader{messages: []kafkaGo.Message{{Value: []byte(`{"session_id":"sess-1"}`)}}}
	p := &Poller{carts: &recordingClearer{}, reader: reader, logger: zap.NewNop(), backoff: maxReadBackoff}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	// Reset to zero by the message, then one step for the cancelled read.
	assert.Equal(t, minReadBackoff, p.backoff)
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, cleanup := setupKafka(t)
	defer cleanup()
	topic := "orders-confirmed"
	createTopic(t, broker, topic)

	registry := session.NewRegistry(storage.NewMemory())
	cart, err := registry.Get(ctx, "sess-1")
	require.NoError(t, err)
	cart.Store.Add(ctx, domain.NewItemInput("a", "Suya", 1000))

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	err = w.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte("o-1"),
		Value: []byte(`{"order_id":"o-1","session_id":"sess-1","status":"confirmed"}`),
	})
	require.NoError(t, err)
	w.Close()

	p := NewPoller(registry, zap.NewNop(), topic, broker)
	defer p.Close()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		return cart.Store.ItemCount() == 0
	}, 15*time.Second, 500*time.Millisecond)
}

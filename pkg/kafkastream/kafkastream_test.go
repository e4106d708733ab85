package kafkastream

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsume_CommitsEveryMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		msgs:   []kafka.Message{{Offset: 1, Value: []byte("a")}, {Offset: 2, Value: []byte("b")}},
		cancel: cancel,
	}
	var group string
	c, err := New(Config{Brokers: []string{"localhost:9092"}, Topic: "mailbox-events"}, zap.NewNop())
	require.NoError(t, err)
	c.newReader = func(cfg Config) Reader {
		group = cfg.GroupID
		return reader
	}

	var seen []string
	err = c.Consume(ctx, "user-registrations", func(ctx context.Context, body []byte) error {
		seen = append(seen, string(body))
		if string(body) == "b" {
			return errors.New("bad payload")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, []int64{1, 2}, reader.committed)
	assert.True(t, reader.closed)
	assert.Equal(t, "eshop-user-registrations", group)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Topic: "t"}, zap.NewNop())
	assert.Error(t, err)
}

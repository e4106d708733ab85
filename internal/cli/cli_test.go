package cli

import (
	"context"
	"testing"

	"eshop/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "notify")
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestNotifyRejectsUnknownWorker(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"notify", "invoices"})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "unknown notification worker")
}

func TestConnectorSelection(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	c, err := connector(ctx, config.Config{EventSource: "amqp"}, log)
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = connector(ctx, config.Config{EventSource: "kafka", KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, log)
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = connector(ctx, config.Config{EventSource: "sqs", MinioRegion: "us-east-1"}, log)
	assert.ErrorContains(t, err, "SQS_QUEUE_URL")

	_, err = connector(ctx, config.Config{EventSource: "carrier-pigeon"}, log)
	assert.ErrorContains(t, err, "unknown EVENT_SOURCE")
}

func TestListenAddr(t *testing.T) {
	assert.Equal(t, ":8080", listenAddr("8080"))
	assert.Equal(t, "0.0.0.0:9000", listenAddr("0.0.0.0:9000"))
	assert.Equal(t, "", listenAddr(""))
}

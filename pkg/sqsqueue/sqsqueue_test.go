package sqsqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSQS struct {
	mock.Mock
}

func (m *mockSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *mockSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, args.Error(0)
}

func TestConsume_DeletesOnlyHandledMessages(t *testing.T) {
	client := new(mockSQS)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{
			{Body: aws.String(`{"Records":[]}`), ReceiptHandle: aws.String("ok")},
			{Body: aws.String(`bad`), ReceiptHandle: aws.String("fail")},
			{Body: aws.String(`{"Type":"Notification","Message":"{\"Records\":[]}"}`), ReceiptHandle: aws.String("sns")},
		},
	}, nil).Once()
	client.On("ReceiveMessage", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled).Once()
	client.On("DeleteMessage", mock.Anything, "ok").Return(nil).Once()
	client.On("DeleteMessage", mock.Anything, "sns").Return(nil).Once()

	var bodies []string
	c := NewWithClient(client, "http://queue", zap.NewNop())
	err := c.Consume(ctx, "order-confirmations", func(ctx context.Context, body []byte) error {
		bodies = append(bodies, string(body))
		if string(body) == "bad" {
			return errors.New("unparseable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{`{"Records":[]}`, "bad", `{"Records":[]}`}, bodies)
	client.AssertExpectations(t)
}

func TestConsume_ReturnsReceiveErrors(t *testing.T) {
	client := new(mockSQS)
	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(nil, errors.New("access denied")).Once()

	c := NewWithClient(client, "http://queue", zap.NewNop())
	err := c.Consume(context.Background(), "b", func(context.Context, []byte) error { return nil })
	assert.ErrorContains(t, err, "access denied")
}

func TestNewRequiresQueueURL(t *testing.T) {
	_, err := New(aws.Config{}, "", zap.NewNop())
	assert.Error(t, err)
}

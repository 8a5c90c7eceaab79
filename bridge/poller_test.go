package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raywall/parse-toolkit/value"
)

const queueURL = "https://sqs.us-east-1.amazonaws.com/123/parse-ingest"

type MockSQSClient struct {
	mock.Mock
}

func (m *MockSQSClient) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockSQSClient) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, params)
	return &sqs.DeleteMessageOutput{}, args.Error(0)
}

func message(id, body string) types.Message {
	return types.Message{MessageId: aws.String(id), Body: aws.String(body), ReceiptHandle: aws.String("rh-" + id)}
}

func TestPoller_DeletesOnlyProcessedMessages(t *testing.T) {
	sqsMock := new(MockSQSClient)
	sqsMock.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{message("m1", `{"n":1}`), message("m2", `{"n":2}`)},
	}, nil).Once()
	sqsMock.On("DeleteMessage", mock.Anything, mock.Anything).Return(nil)

	runner := new(MockRunner)
	runner.On("Run", "ingest", map[string]any{"n": float64(1)}).Return(value.Bool(true), nil)
	runner.On("Run", "ingest", map[string]any{"n": float64(2)}).Return(value.Null(), errors.New("boom"))

	p := NewPoller(sqsMock, queueURL, runner, Target{Function: "ingest"}, zerolog.Nop())
	require.NoError(t, p.poll(context.Background()))

	sqsMock.AssertCalled(t, "DeleteMessage", mock.Anything, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String("rh-m1"),
	})
	sqsMock.AssertNumberOfCalls(t, "DeleteMessage", 1)
	runner.AssertExpectations(t)

	in := sqsMock.Calls[0].Arguments.Get(1).(*sqs.ReceiveMessageInput)
	assert.Equal(t, int32(10), in.MaxNumberOfMessages)
	assert.Equal(t, int32(20), in.WaitTimeSeconds)
}

func TestPoller_StartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqsMock := new(MockSQSClient)
	sqsMock.On("ReceiveMessage", mock.Anything, mock.Anything).Return(nil, errors.New("throttled")).Once()
	sqsMock.On("ReceiveMessage", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(&sqs.ReceiveMessageOutput{}, nil)

	p := NewPoller(sqsMock, queueURL, new(MockRunner), Target{Function: "ingest"}, zerolog.Nop())
	p.RetryDelay = time.Millisecond

	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	sqsMock.AssertNumberOfCalls(t, "ReceiveMessage", 2)
}

func TestPoller_Disabled(t *testing.T) {
	p := NewPoller(new(MockSQSClient), "", new(MockRunner), Target{Function: "ingest"}, zerolog.Nop())
	assert.NoError(t, p.Start(context.Background()))

	p = NewPoller(new(MockSQSClient), queueURL, new(MockRunner), Target{}, zerolog.Nop())
	assert.ErrorIs(t, p.Start(context.Background()), ErrNoTarget)
}

package bridge

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
)

// SQSClient define a interface necessária para o poller (permite Mocking)
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Poller consome a fila fora do Lambda. Mensagens processadas com sucesso
// são removidas; as que falham ficam na fila até o visibility timeout.
type Poller struct {
	client   SQSClient
	queueURL string
	runner   Runner
	target   Target
	logger   zerolog.Logger

	// RetryDelay é a espera depois de um erro de ReceiveMessage.
	RetryDelay time.Duration
	// MaxMessages por ReceiveMessage (1 a 10).
	MaxMessages int32
	WaitSeconds int32
}

func NewPoller(client SQSClient, queueURL string, r Runner, t Target, log zerolog.Logger) *Poller {
	return &Poller{
		client:      client,
		queueURL:    queueURL,
		runner:      r,
		target:      t,
		logger:      log.With().Str("component", "sqs_poller").Logger(),
		RetryDelay:  5 * time.Second,
		MaxMessages: 10,
		WaitSeconds: 20,
	}
}

// Start bloqueia até ctx ser cancelado.
func (p *Poller) Start(ctx context.Context) error {
	if p.queueURL == "" {
		p.logger.Warn().Msg("queue url not configured, poller disabled")
		return nil
	}
	if p.target.Function == "" {
		return ErrNoTarget
	}

	p.logger.Info().Str("queue", p.queueURL).Str(p.target.kind(), p.target.Function).Msg("polling queue")
	for {
		if ctx.Err() != nil {
			p.logger.Info().Msg("poller stopped")
			return nil
		}
		if err := p.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error().Err(err).Dur("retry_in", p.RetryDelay).Msg("receive failed")
			select {
			case <-ctx.Done():
			case <-time.After(p.RetryDelay):
			}
		}
	}
}

// poll faz uma rodada de ReceiveMessage e processa o que vier.
func (p *Poller) poll(ctx context.Context) error {
	out, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(p.queueURL),
		MaxNumberOfMessages: p.MaxMessages,
		WaitTimeSeconds:     p.WaitSeconds,
	})
	if err != nil {
		return err
	}

	for _, msg := range out.Messages {
		id := aws.ToString(msg.MessageId)
		logger := p.logger.With().Str("message_id", id).Logger()
		if err := dispatch(logger.WithContext(ctx), p.runner, p.target, aws.ToString(msg.Body)); err != nil {
			logger.Warn().Err(err).Msg("message failed, leaving it on the queue")
			continue
		}
		if _, err := p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(p.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			logger.Error().Err(err).Msg("delete failed")
		}
	}
	return nil
}

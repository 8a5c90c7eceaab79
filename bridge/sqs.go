package bridge

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
)

// SQSHandler processa lotes entregues pelo Lambda. Cada mensagem é
// independente: as que falham voltam em BatchItemFailures para nova
// tentativa, sem reprocessar as demais.
type SQSHandler struct {
	runner Runner
	target Target
	log    zerolog.Logger
}

func NewSQSHandler(r Runner, t Target, log zerolog.Logger) *SQSHandler {
	return &SQSHandler{runner: r, target: t, log: log.With().Str("component", "sqs_bridge").Logger()}
}

// Handle exige ReportBatchItemFailures habilitado no event source mapping.
func (h *SQSHandler) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	if h.target.Function == "" {
		return events.SQSEventResponse{}, ErrNoTarget
	}

	var resp events.SQSEventResponse
	for _, msg := range ev.Records {
		logger := h.log.With().Str("message_id", msg.MessageId).Logger()
		if err := dispatch(logger.WithContext(ctx), h.runner, h.target, msg.Body); err != nil {
			logger.Warn().Err(err).Str(h.target.kind(), h.target.Function).Msg("message failed")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: msg.MessageId})
			continue
		}
		logger.Debug().Str(h.target.kind(), h.target.Function).Msg("message processed")
	}

	h.log.Info().
		Int("received", len(ev.Records)).
		Int("failed", len(resp.BatchItemFailures)).
		Msg("sqs batch completed")
	return resp, nil
}

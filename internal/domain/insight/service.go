package insight

import (
	"context"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/iso-insight/pkg/errors"
	"github.com/yanqian/iso-insight/pkg/util"
)

// Service sequences retrieval, prompt composition and generation.
type Service struct {
	retriever *Retriever
	generator Generator
	logger    *slog.Logger
}

// NewService wires up the answer pipeline.
func NewService(retriever *Retriever, generator Generator, logger *slog.Logger) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		logger:    logger.With("component", "insight.service"),
	}
}

// Answer runs retrieve, compose and generate for a single question. Any
// failure is returned as is; no partial answer is produced.
func (s *Service) Answer(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, apperrors.Wrap(apperrors.CodeInvalidInput, "question cannot be empty", nil)
	}
	start := time.Now()

	excerpts, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return Answer{}, err
	}
	prompt, err := ComposePrompt(question, excerpts)
	if err != nil {
		return Answer{}, apperrors.Wrap(apperrors.CodeService, "failed to compose prompt", err)
	}
	gen, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return Answer{}, err
	}
	text := strings.TrimSpace(gen.Text)
	if text == "" {
		return Answer{}, apperrors.Wrap(apperrors.CodeService, "generation returned an empty answer", nil)
	}

	answer := Answer{
		Question:   question,
		Text:       text,
		Context:    excerpts,
		DurationMs: util.MillisSince(start),
		AnsweredAt: util.NowUTC(),
	}
	if !gen.Usage.IsZero() {
		usage := gen.Usage
		answer.TokenUsage = &usage
	}
	s.logger.Info("question answered", "excerpts", len(excerpts), "duration_ms", answer.DurationMs, "usage", gen.Usage)
	return answer, nil
}

var _ Assistant = (*Service)(nil)

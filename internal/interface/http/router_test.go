package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/iso-insight/internal/domain/insight"
	"github.com/yanqian/iso-insight/internal/infra/config"
	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

func TestRouter_ShowRendersForm(t *testing.T) {
	server := newRouterUnderTest(t, readyWith(&stubAssistant{}), config.RateLimitConfig{})

	rec := performRequest(server, http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "ISO INSIGHT")
	require.Contains(t, body, `<input type="text" id="message" name="message"`)
	require.NotContains(t, body, "<textarea")
	require.NotContains(t, body, "Analysis generated!")
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRouter_AskBlankShowsWarning(t *testing.T) {
	assistant := &stubAssistant{}
	server := newRouterUnderTest(t, readyWith(assistant), config.RateLimitConfig{})

	rec := performRequest(server, http.MethodPost, "   ")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Please enter a question.")
	require.Zero(t, assistant.calls)
}

func TestRouter_AskRendersAnswer(t *testing.T) {
	assistant := &stubAssistant{
		answerFn: func(ctx context.Context, question string) (insight.Answer, error) {
			require.Equal(t, "What is ISO 9001?", question)
			return insight.Answer{
				Question: question,
				Text:     "ISO 9001 defines quality management systems.",
				Context:  []string{"standard: ISO 9001", "standard: ISO 14001"},
			}, nil
		},
	}
	server := newRouterUnderTest(t, readyWith(assistant), config.RateLimitConfig{})

	rec := performRequest(server, http.MethodPost, "  What is ISO 9001?  ")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Analysis generated!")
	require.Contains(t, body, "ISO 9001 defines quality management systems.")
	require.Contains(t, body, "standard: ISO 14001")
	require.Equal(t, 1, assistant.calls)
}

func TestRouter_AskServiceErrorShowsBanner(t *testing.T) {
	assistant := &stubAssistant{
		answerFn: func(ctx context.Context, question string) (insight.Answer, error) {
			return insight.Answer{}, apperrors.Wrap(apperrors.CodeService, "embedding request failed", context.DeadlineExceeded)
		},
	}
	server := newRouterUnderTest(t, readyWith(assistant), config.RateLimitConfig{})

	rec := performRequest(server, http.MethodPost, "What is ISO 27001?")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "embedding request failed")
	require.Contains(t, body, `value="What is ISO 27001?"`)
	require.NotContains(t, body, "Analysis generated!")
}

func TestRouter_AskAuthenticationError(t *testing.T) {
	assistant := &stubAssistant{
		answerFn: func(ctx context.Context, question string) (insight.Answer, error) {
			return insight.Answer{}, apperrors.Wrap(apperrors.CodeAuthentication, "invalid api key", nil)
		},
	}
	server := newRouterUnderTest(t, readyWith(assistant), config.RateLimitConfig{})

	rec := performRequest(server, http.MethodPost, "What is ISO 27001?")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid api key")
}

func TestRouter_BlockedStartup(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "missing credential", err: apperrors.Wrap(apperrors.CodeConfig, "OpenAI API key not found", nil), want: "Configuration error"},
		{name: "corpus load", err: apperrors.Wrap(apperrors.CodeLoad, "open iso_base.csv", nil), want: "could not be loaded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newRouterUnderTest(t, stubReadiness{err: tc.err}, config.RateLimitConfig{})
			for _, method := range []string{http.MethodGet, http.MethodPost} {
				rec := performRequest(server, method, "What is ISO 9001?")
				require.Equal(t, http.StatusServiceUnavailable, rec.Code)
				body := rec.Body.String()
				require.Contains(t, body, tc.want)
				require.NotContains(t, body, `name="message"`)
			}
		})
	}
}

func TestRouter_RateLimit(t *testing.T) {
	server := newRouterUnderTest(t, readyWith(&stubAssistant{}), config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
		Burst:             1,
	})

	require.Equal(t, http.StatusOK, performRequest(server, http.MethodGet, "").Code)
	rec := performRequest(server, http.MethodGet, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "too many requests")
}

func performRequest(server *http.Server, method, message string) *httptest.ResponseRecorder {
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(url.Values{"message": {message}}.Encode())
	}
	req := httptest.NewRequest(method, "/", body)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, readiness Readiness, rateLimit config.RateLimitConfig) *http.Server {
	t.Helper()
	handler := NewPageHandler(readiness, newTestLogger())
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			RateLimit:    rateLimit,
		},
	}
	return NewRouter(cfg, handler)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubReadiness struct {
	assistant insight.Assistant
	err       error
}

func (s stubReadiness) Assistant() (insight.Assistant, error) {
	return s.assistant, s.err
}

func readyWith(assistant insight.Assistant) stubReadiness {
	return stubReadiness{assistant: assistant}
}

type stubAssistant struct {
	calls    int
	answerFn func(ctx context.Context, question string) (insight.Answer, error)
}

func (s *stubAssistant) Answer(ctx context.Context, question string) (insight.Answer, error) {
	s.calls++
	if s.answerFn != nil {
		return s.answerFn(ctx, question)
	}
	return insight.Answer{Question: question, Text: "ok"}, nil
}

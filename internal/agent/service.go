package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/dashboard"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/resilience"
)

// SystemPrompt frames every question sent to the model.
const SystemPrompt = "You are a dairy analytics assistant."

const defaultTimeout = 20 * time.Second

// Figures supplies the aggregates the model is allowed to see.
type Figures interface {
	GlobalSummary(ctx context.Context) (dashboard.Summary, error)
	VendorRanking(ctx context.Context) ([]dashboard.RankEntry, error)
}

// Answer is the model reply to one question.
type Answer struct {
	RequestID string `json:"request_id"`
	Answer    string `json:"answer"`
}

// Service forwards admin questions, together with current aggregates, to a
// language model. The call runs under its own timeout and circuit breaker so a
// slow or failing model never affects the dashboards.
type Service struct {
	Figures Figures
	LLM     Completer
	Timeout time.Duration
	Breaker *resilience.Breaker
	Logger  zerolog.Logger
}

// Ask answers question using the latest aggregates as context.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	if s == nil || s.LLM == nil {
		obs.AgentRequestsTotal.WithLabelValues("disabled").Inc()
		return Answer{}, common.NewAppError("AGENT_UNAVAILABLE", "assistant is not configured", http.StatusServiceUnavailable, nil)
	}
	if s.Figures == nil {
		return Answer{}, errors.New("agent figures not configured")
	}
	summary, err := s.Figures.GlobalSummary(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("load summary: %w", err)
	}
	ranking, err := s.Figures.VendorRanking(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("load ranking: %w", err)
	}

	requestID := uuid.NewString()
	logger := s.Logger.With().Str("agent_request_id", requestID).Logger()
	prompt := BuildPrompt(summary, ranking, question)

	var reply string
	call := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout())
		defer cancel()
		var err error
		reply, err = s.LLM.Complete(ctx, SystemPrompt, prompt)
		return err
	}
	if s.Breaker != nil {
		err = s.Breaker.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		appErr := classify(err)
		obs.AgentRequestsTotal.WithLabelValues(strings.ToLower(strings.TrimPrefix(appErr.Code, "AGENT_"))).Inc()
		logger.Warn().Err(err).Str("code", appErr.Code).Msg("assistant call failed")
		return Answer{}, appErr
	}
	obs.AgentRequestsTotal.WithLabelValues("ok").Inc()
	logger.Info().Int("answer_chars", len(reply)).Msg("assistant answered")
	return Answer{RequestID: requestID, Answer: reply}, nil
}

func (s *Service) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return defaultTimeout
}

func classify(err error) *common.AppError {
	switch {
	case errors.Is(err, resilience.ErrOpenCircuit):
		return common.NewAppError("AGENT_UNAVAILABLE", "assistant temporarily unavailable", http.StatusServiceUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewAppError("AGENT_TIMEOUT", "assistant timed out", http.StatusGatewayTimeout, err)
	default:
		return common.NewAppError("AGENT_ERROR", "assistant request failed", http.StatusBadGateway, err)
	}
}

// BuildPrompt renders the aggregates and the question as the user message.
func BuildPrompt(summary dashboard.Summary, ranking []dashboard.RankEntry, question string) string {
	var b strings.Builder
	b.WriteString("Here is the data:\n")
	fmt.Fprintf(&b, "Total Revenue: %.2f\n", summary.TotalRevenue)
	fmt.Fprintf(&b, "Total Milk Collected: %.2f\n", summary.TotalWeight)
	fmt.Fprintf(&b, "Average Quality: %.2f%%\n", summary.AvgQualityPct)
	fmt.Fprintf(&b, "Rejected Shipments: %.2f%%\n", summary.SpoilagePct)
	b.WriteString("Vendor Revenue Data:\n")
	if len(ranking) == 0 {
		b.WriteString("- none recorded\n")
	}
	for _, entry := range ranking {
		fmt.Fprintf(&b, "- %s: revenue %.2f, milk %.2f\n", entry.VendorName, entry.TotalRevenue, entry.TotalWeight)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

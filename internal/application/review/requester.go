package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bryanwahyu/budget-review/internal/domain/ai"
	"github.com/bryanwahyu/budget-review/internal/domain/budget"
	"github.com/bryanwahyu/budget-review/internal/infra/ai/prompt"
)

// Source tells where a review came from.
type Source string

const (
	SourceService  Source = "service"
	SourceFallback Source = "fallback"
)

// Outcome is either a service-derived review or a locally synthesized one.
// Cause is set only for fallback outcomes.
type Outcome struct {
	Review budget.AdvancedReview
	Source Source
	Cause  error
}

func (o Outcome) Fallback() bool { return o.Source == SourceFallback }

// Requester produces advanced reviews. It never returns an error: every
// failure of the narrative service ends in a fallback outcome.
type Requester struct {
	client ai.Client
}

// NewRequester accepts a nil client, in which case every review is a fallback.
func NewRequester(client ai.Client) *Requester {
	return &Requester{client: client}
}

func (r *Requester) Review(ctx context.Context, in budget.ReviewInput) Outcome {
	log := zerolog.Ctx(ctx)

	if r.client == nil {
		return fallbackOutcome(in, ai.ErrNotConfigured)
	}

	user, err := prompt.BuildReviewPrompt(in)
	if err != nil {
		return r.fail(log, in, err)
	}

	raw, err := r.client.Complete(ctx, prompt.SystemPrompt, user)
	if err != nil {
		return r.fail(log, in, err)
	}

	rev, err := Decode(raw)
	if err != nil {
		return r.fail(log, in, fmt.Errorf("decode review: %w", err))
	}
	return Outcome{Review: rev, Source: SourceService}
}

func (r *Requester) fail(log *zerolog.Logger, in budget.ReviewInput, cause error) Outcome {
	log.Error().
		Err(cause).
		Bool("quota", errors.Is(cause, ai.ErrQuotaExceeded)).
		Msg("advanced review failed, using fallback")
	return fallbackOutcome(in, cause)
}

func fallbackOutcome(in budget.ReviewInput, cause error) Outcome {
	return Outcome{
		Review: Fallback(in, errors.Is(cause, ai.ErrNotConfigured)),
		Source: SourceFallback,
		Cause:  cause,
	}
}

package pilot

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bryanwahyu/budget-review/internal/application"
	domain "github.com/bryanwahyu/budget-review/internal/domain/pilot"
)

// Service records pilot signups. Repo is optional; without it requests are only logged.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

type SubmitCommand struct {
	Email     string
	Role      string
	City      string
	State     string
	Notes     string
	UserAgent string
	Referer   string
}

// Submit validates and stores one request.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) error {
	email := strings.TrimSpace(cmd.Email)
	if email == "" {
		return domain.ErrEmailRequired
	}

	req := &domain.Request{
		Email:     email,
		Role:      strings.TrimSpace(cmd.Role),
		City:      strings.TrimSpace(cmd.City),
		State:     strings.TrimSpace(cmd.State),
		Notes:     strings.TrimSpace(cmd.Notes),
		UserAgent: cmd.UserAgent,
		Referer:   cmd.Referer,
		CreatedAt: s.Clock.Now(),
	}

	log := zerolog.Ctx(ctx)
	if s.Repo == nil {
		log.Info().Str("email", req.Email).Str("city", req.City).Msg("pilot request received, storage disabled")
		return nil
	}
	if err := s.Repo.Save(ctx, req); err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("failed to save pilot request")
		return err
	}
	log.Info().Int64("id", req.ID).Msg("pilot request saved")
	return nil
}

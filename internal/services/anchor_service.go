package services

import (
	"ble-linepos/internal/config/components"
	"ble-linepos/internal/models"
	"context"
	"fmt"
	"github.com/rs/zerolog"
)

type AnchorRepository interface {
	FindAnchors(ctx context.Context, ids [2]models.AnchorID) (models.AnchorConfig, error)
	CreateOrUpdate(ctx context.Context, anchor models.Anchor) error
}

// AnchorService resolves the anchor pair either from the environment or
// from the survey table.
type AnchorService struct {
	config     components.AnchorsConfigImpl
	repository AnchorRepository
	logger     zerolog.Logger
}

func NewAnchorService(cfg components.AnchorsConfigImpl, repository AnchorRepository, logger zerolog.Logger) *AnchorService {
	return &AnchorService{
		config:     cfg,
		repository: repository,
		logger:     logger,
	}
}

func (s *AnchorService) Resolve(ctx context.Context) (models.AnchorConfig, error) {
	var anchors models.AnchorConfig

	switch s.config.Source {
	case components.AnchorSourcePostgres:
		if s.repository == nil {
			return nil, fmt.Errorf("anchor source is postgres but no repository is configured")
		}
		found, err := s.repository.FindAnchors(ctx, s.config.IDs())
		if err != nil {
			return nil, err
		}
		anchors = found
	default:
		anchors = s.config.ToAnchorConfig()
	}

	if err := anchors.Validate(); err != nil {
		return nil, err
	}

	for _, anchor := range anchors {
		s.logger.Info().
			Str("anchor_id", anchor.ID.String()).
			Str("label", anchor.Label).
			Str("position", anchor.Position.String()).
			Str("source", s.config.Source).
			Msg("Anchor resolved")
	}

	return anchors, nil
}

// Register writes the environment anchors to the survey table.
func (s *AnchorService) Register(ctx context.Context) error {
	if s.repository == nil {
		return fmt.Errorf("no anchor repository is configured")
	}

	anchors := s.config.ToAnchorConfig()
	if err := anchors.Validate(); err != nil {
		return err
	}

	for _, anchor := range anchors {
		if err := s.repository.CreateOrUpdate(ctx, anchor); err != nil {
			return fmt.Errorf("registering anchor %s: %w", anchor.ID, err)
		}
		s.logger.Info().Str("anchor_id", anchor.ID.String()).Msg("Anchor registered")
	}
	return nil
}

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/domain/events"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
	"github.com/alanwallace9/agencytoolkit/pkg/imaging"
	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
)

// ImageService handles template base images and personalized renders.
type ImageService struct {
	templates ports.Repository[*entities.ImageTemplate]
	blobs     ports.BlobStore
	gate      *cooldown
	publisher ports.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewImageService creates the image use cases. Uploads per template are
// gated by window.
func NewImageService(
	templates ports.Repository[*entities.ImageTemplate],
	blobs ports.BlobStore,
	gate ratelimit.Gate,
	window time.Duration,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ImageService {
	logger = logger.Named("images")
	if window <= 0 {
		window = DefaultUploadWindow
	}
	return &ImageService{
		templates: templates,
		blobs:     blobs,
		gate:      newCooldown("upload", gate, window, logger),
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// SetWindow changes the upload cooldown.
func (s *ImageService) SetWindow(d time.Duration) { s.gate.setWindow(d) }

// Upload stores data as the template's base image.
func (s *ImageService) Upload(ctx context.Context, tenant Tenant, templateID string, data []byte) (*entities.ImageTemplate, error) {
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("image is required")
	}
	if len(data) > imaging.MaxUploadBytes {
		return nil, apperrors.NewValidationError(fmt.Sprintf("image must be at most %d MB", imaging.MaxUploadBytes>>20))
	}
	format, err := imaging.Sniff(data)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := imaging.CheckDimensions(data); err != nil {
		if errors.Is(err, imaging.ErrImageTooLarge) {
			return nil, apperrors.NewValidationError(err.Error())
		}
		return nil, apperrors.NewValidationError("image could not be decoded")
	}

	// Ownership first, so foreign templates are never gated or written.
	if _, err := s.templates.Get(ctx, tenant.AgencyID, templateID); err != nil {
		return nil, err
	}

	key := ratelimit.Key("upload", tenant.AgencyID, templateID)
	if err := s.gate.check(ctx, key); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/%s/base.%s", tenant.AgencyID, templateID, format.Ext)
	if err := s.blobs.Put(ctx, path, format.ContentType, data); err != nil {
		return nil, err
	}
	updated, err := s.templates.Update(ctx, tenant.AgencyID, templateID, map[string]any{"base_image_path": path})
	if err != nil {
		return nil, err
	}
	s.gate.mark(ctx, key)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewImageUploaded(tenant.AgencyID, templateID, path, s.now().UTC())); err != nil {
			s.logger.Warn("Failed to publish event", zap.String("agency_id", tenant.AgencyID), zap.Error(err))
		}
	}
	s.logger.Info("Base image uploaded",
		zap.String("agency_id", tenant.AgencyID),
		zap.String("id", templateID),
		zap.Int("bytes", len(data)),
	)
	return updated, nil
}

// Render draws name, or the template's default name, on the base image and
// returns a PNG.
func (s *ImageService) Render(ctx context.Context, tenant Tenant, templateID, name string) ([]byte, error) {
	tpl, err := s.templates.Get(ctx, tenant.AgencyID, templateID)
	if err != nil {
		return nil, err
	}
	if tpl.BaseImagePath == "" {
		return nil, apperrors.NewValidationError("template has no base image")
	}
	base, err := s.blobs.Get(ctx, tpl.BaseImagePath)
	if err != nil {
		return nil, err
	}
	return RenderTemplate(tpl, base, name)
}

// RenderTemplate renders tpl's overlay on base without touching storage.
func RenderTemplate(tpl *entities.ImageTemplate, base []byte, name string) ([]byte, error) {
	if name == "" {
		name = tpl.DefaultName
	}
	c, err := imaging.ParseHexColor(tpl.TextColor)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid text color")
	}

	var buf bytes.Buffer
	err = imaging.RenderPNG(&buf, base, imaging.Overlay{
		Text:  name,
		X:     tpl.TextX,
		Y:     tpl.TextY,
		Color: c,
		Scale: tpl.TextSize,
	})
	if errors.Is(err, imaging.ErrImageTooLarge) {
		return nil, apperrors.NewValidationError("base image is too large to render")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("render image").WithCause(err)
	}
	return buf.Bytes(), nil
}

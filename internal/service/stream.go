// Package service contains the business logic layer: validation, access
// policy enforcement, and slug assignment live here, between the HTTP
// handlers and the repositories.
//
// Services accept plain values plus an explicit caller identity — never an
// *http.Request and never ambient session state — and return domain errors
// from the apperror package. The handler layer translates both directions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/policy"
	"github.com/sakif/streamhub/internal/repository"
	"github.com/sakif/streamhub/internal/slug"
)

// Field constraints enforced before any persistence call.
const (
	MinTitleLength       = 3
	MaxTitleLength       = 120
	MaxDescriptionLength = 1000
	MinSlugLength        = 3
	MaxSlugLength        = 160
	DefaultListLimit     = 20
	MaxListLimit         = 50
)

// slugWriteRetries bounds recovery from write-time slug collisions. The
// pre-check loop makes these rare; each retry re-runs the full pre-check
// against the now-committed winner, so the next suffix is picked up.
const slugWriteRetries = 5

// StreamService handles business logic for stream records.
type StreamService struct {
	streams  repository.StreamRepository
	assigner *slug.Assigner
	logger   *slog.Logger
}

// NewStreamService creates a StreamService. The slug assigner probes
// uniqueness through the same repository the service persists to.
func NewStreamService(streams repository.StreamRepository, logger *slog.Logger) *StreamService {
	s := &StreamService{
		streams: streams,
		logger:  logger,
	}
	s.assigner = slug.NewAssigner(s.lookupSlug)
	return s
}

// lookupSlug adapts the repository to the assigner's probe contract:
// not-found is a free slug, anything else is the holder's ID.
func (s *StreamService) lookupSlug(ctx context.Context, candidate string) (string, bool, error) {
	stream, err := s.streams.GetBySlug(ctx, candidate)
	if errors.Is(err, apperror.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return stream.ID, true, nil
}

// CreateInput carries the caller-supplied fields for a new stream.
type CreateInput struct {
	Title       string
	Description string
	Visibility  model.Visibility
	HlsURL      string
}

// Create validates the input, derives a unique slug from the title, and
// persists a new stream owned by ownerID.
func (s *StreamService) Create(ctx context.Context, ownerID string, in CreateInput) (*model.Stream, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("sign in to create a stream")
	}

	title := strings.TrimSpace(in.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if len(in.Description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = model.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, apperror.ValidationFailed("visibility",
			"visibility must be public, unlisted, or private")
	}

	if err := validateHlsURL(in.HlsURL); err != nil {
		return nil, err
	}

	stream := &model.Stream{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Visibility:  visibility,
		HlsURL:      in.HlsURL,
		UserID:      ownerID,
	}

	// Assign-then-insert is racy against concurrent writers proposing the
	// same slug; the UNIQUE index decides the loser, and we reassign with
	// the winner's row now visible to the probe.
	for attempt := 0; ; attempt++ {
		assigned, err := s.assigner.Assign(ctx, title, "")
		if err != nil {
			return nil, fmt.Errorf("creating stream: %w", err)
		}
		stream.Slug = assigned

		err = s.streams.Create(ctx, stream)
		if err == nil {
			break
		}
		if errors.Is(err, apperror.ErrConflict) && attempt < slugWriteRetries {
			s.logger.Warn("slug conflict on create, retrying",
				slog.String("slug", assigned),
			)
			continue
		}
		s.logger.Error("failed to create stream",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating stream: %w", err)
	}

	s.logger.Info("stream created",
		slog.String("id", stream.ID),
		slog.String("slug", stream.Slug),
		slog.String("userID", ownerID),
	)

	return stream, nil
}

// Get retrieves a stream by ID or slug for the given caller.
//
// A private stream is reported as not-found to any non-owner, so the
// response does not confirm its existence.
func (s *StreamService) Get(ctx context.Context, idOrSlug, callerID string) (*model.Stream, error) {
	stream, err := s.resolve(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(stream, callerID) {
		return nil, apperror.NotFound("stream", idOrSlug)
	}
	return stream, nil
}

// resolve finds a stream by exact ID first, falling back to exact slug.
// The same path parameter therefore addresses a record by either its
// stable ID or its human-readable slug. Absence of both is NotFound.
func (s *StreamService) resolve(ctx context.Context, idOrSlug string) (*model.Stream, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, apperror.ValidationFailed("id", "stream ID or slug is required")
	}

	stream, err := s.streams.GetByID(ctx, idOrSlug)
	if err == nil {
		return stream, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	return s.streams.GetBySlug(ctx, idOrSlug)
}

// ListInput carries the caller-supplied listing parameters.
type ListInput struct {
	Search     string
	IsLive     *bool
	Mine       bool
	Visibility []model.Visibility
	Order      repository.ListOrder
	Take       int
	Skip       int
}

// List retrieves streams visible to the caller.
//
// The caller's scope (see policy.ScopeFor) always applies; the optional
// visibility filter narrows it further but can never widen it, because the
// two combine conjunctively in the repository. Mine requires an
// authenticated caller and fails with an authorization error otherwise.
func (s *StreamService) List(ctx context.Context, callerID string, in ListInput) ([]model.Stream, error) {
	scope, err := policy.ScopeFor(callerID, in.Mine)
	if err != nil {
		return nil, err
	}

	take := in.Take
	if take <= 0 {
		take = DefaultListLimit
	}
	if take > MaxListLimit {
		take = MaxListLimit
	}
	skip := in.Skip
	if skip < 0 {
		skip = 0
	}

	// Unknown visibility values are dropped rather than rejected.
	visibility := make([]model.Visibility, 0, len(in.Visibility))
	for _, v := range in.Visibility {
		if v.Valid() {
			visibility = append(visibility, v)
		}
	}

	streams, err := s.streams.List(ctx, repository.StreamFilter{
		Scope:      scope,
		Search:     strings.TrimSpace(in.Search),
		IsLive:     in.IsLive,
		Visibility: visibility,
		Order:      in.Order,
		Limit:      take,
		Offset:     skip,
	})
	if err != nil {
		s.logger.Error("failed to list streams", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing streams: %w", err)
	}

	return streams, nil
}

// UpdateInput carries the caller-supplied fields for a partial update.
// Nil means "leave unchanged"; a present empty string clears the
// description or playback URL.
type UpdateInput struct {
	Title       *string
	Description *string
	Visibility  *model.Visibility
	Slug        *string
	IsLive      *bool
	HlsURL      *string
}

// Empty reports whether no recognized field is present. Handlers reject
// empty updates before the service (and thus the repository) is invoked.
func (in UpdateInput) Empty() bool {
	return in.Title == nil && in.Description == nil && in.Visibility == nil &&
		in.Slug == nil && in.IsLive == nil && in.HlsURL == nil
}

// Update applies a partial update to a stream the caller owns.
//
// Order of checks: resolve the target, gate on ownership, validate the
// payload, then persist — so a non-owner learns nothing about the payload
// rules and nothing is written unless every check passes. A slug change
// goes through the assigner with the record's own ID excluded, so a record
// may keep or re-request its current slug.
func (s *StreamService) Update(ctx context.Context, idOrSlug, callerID string, in UpdateInput) (*model.Stream, error) {
	if callerID == "" {
		return nil, apperror.Unauthorized("sign in to update a stream")
	}

	stream, err := s.resolve(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !policy.CanModify(stream, callerID) {
		return nil, apperror.Forbidden("you do not own this stream")
	}

	if in.Empty() {
		return nil, apperror.ValidationFailed("", "no fields provided for update")
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		stream.Title = title
	}
	if in.Description != nil {
		if len(*in.Description) > MaxDescriptionLength {
			return nil, apperror.ValidationFailed("description",
				fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
		}
		stream.Description = *in.Description
	}
	if in.Visibility != nil {
		if !in.Visibility.Valid() {
			return nil, apperror.ValidationFailed("visibility",
				"visibility must be public, unlisted, or private")
		}
		stream.Visibility = *in.Visibility
	}
	if in.IsLive != nil {
		stream.IsLive = *in.IsLive
	}
	if in.HlsURL != nil {
		if err := validateHlsURL(*in.HlsURL); err != nil {
			return nil, err
		}
		stream.HlsURL = *in.HlsURL
	}

	desiredSlug := ""
	if in.Slug != nil {
		desiredSlug = strings.TrimSpace(*in.Slug)
		if len(desiredSlug) < MinSlugLength || len(desiredSlug) > MaxSlugLength {
			return nil, apperror.ValidationFailed("slug",
				fmt.Sprintf("slug must be between %d and %d characters", MinSlugLength, MaxSlugLength))
		}
	}

	for attempt := 0; ; attempt++ {
		if desiredSlug != "" {
			assigned, err := s.assigner.Assign(ctx, desiredSlug, stream.ID)
			if err != nil {
				return nil, fmt.Errorf("updating stream: %w", err)
			}
			stream.Slug = assigned
		}

		err = s.streams.Update(ctx, stream)
		if err == nil {
			break
		}
		if desiredSlug != "" && errors.Is(err, apperror.ErrConflict) && attempt < slugWriteRetries {
			s.logger.Warn("slug conflict on update, retrying",
				slog.String("slug", stream.Slug),
			)
			continue
		}
		s.logger.Error("failed to update stream",
			slog.String("id", stream.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating stream: %w", err)
	}

	s.logger.Info("stream updated",
		slog.String("id", stream.ID),
		slog.String("slug", stream.Slug),
	)

	return stream, nil
}

// Delete removes a stream the caller owns, resolved by ID or slug.
func (s *StreamService) Delete(ctx context.Context, idOrSlug, callerID string) error {
	if callerID == "" {
		return apperror.Unauthorized("sign in to delete a stream")
	}

	stream, err := s.resolve(ctx, idOrSlug)
	if err != nil {
		return err
	}
	if !policy.CanModify(stream, callerID) {
		return apperror.Forbidden("you do not own this stream")
	}

	if err := s.streams.Delete(ctx, stream.ID); err != nil {
		return err
	}

	s.logger.Info("stream deleted", slog.String("id", stream.ID))
	return nil
}

func validateTitle(title string) error {
	if len(title) < MinTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be at least %d characters", MinTitleLength))
	}
	if len(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return nil
}

// validateHlsURL accepts an empty value (no playback URL) or a well-formed
// absolute URL.
func validateHlsURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return apperror.ValidationFailed("hlsUrl", "hlsUrl must be a valid absolute URL")
	}
	return nil
}

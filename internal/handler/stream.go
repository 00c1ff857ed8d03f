package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/service"
)

// StreamHandler exposes the stream record API. It owns request decoding and
// query parsing; validation, access policy, and slug assignment belong to
// the service.
type StreamHandler struct {
	streams *service.StreamService
	logger  *slog.Logger
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(streams *service.StreamService, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{streams: streams, logger: logger}
}

type createStreamRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	HlsURL      string `json:"hlsUrl"`
}

// HandleCreate creates a stream owned by the authenticated caller.
//
// POST /api/streams
func (h *StreamHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid JSON body"))
		return
	}

	stream, err := h.streams.Create(r.Context(), auth.CallerID(r.Context()), service.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Visibility:  model.Visibility(req.Visibility),
		HlsURL:      req.HlsURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, stream)
}

// HandleList returns streams visible to the caller.
//
// GET /api/streams?q=&isLive=&mine=&visibility=&take=&skip=
//
// visibility accepts a comma-separated subset of public,unlisted,private
// and can only narrow what the caller could already see. mine=true
// requires authentication.
func (h *StreamHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	in := service.ListInput{Search: strings.TrimSpace(q.Get("q"))}

	if raw := q.Get("isLive"); raw != "" {
		isLive, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("isLive", "isLive must be true or false"))
			return
		}
		in.IsLive = &isLive
	}

	if raw := q.Get("mine"); raw != "" {
		mine, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("mine", "mine must be true or false"))
			return
		}
		in.Mine = mine
	}

	// visibility is repeatable (?visibility=public&visibility=unlisted);
	// each occurrence may also hold a comma-separated list.
	in.Visibility = parseVisibilityParams(q["visibility"])

	var err error
	if in.Take, err = parseIntParam(q.Get("take"), "take"); err != nil {
		writeError(w, err)
		return
	}
	if in.Skip, err = parseIntParam(q.Get("skip"), "skip"); err != nil {
		writeError(w, err)
		return
	}

	streams, err := h.streams.List(r.Context(), auth.CallerID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, streams)
}

// HandleGet returns a single stream addressed by ID or slug.
//
// GET /api/streams/{idOrSlug}
//
// A private stream the caller doesn't own reads as 404, same as a stream
// that doesn't exist.
func (h *StreamHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	idOrSlug := r.PathValue("idOrSlug")
	if idOrSlug == "" {
		writeError(w, apperror.ValidationFailed("idOrSlug", "stream identifier is required"))
		return
	}

	stream, err := h.streams.Get(r.Context(), idOrSlug, auth.CallerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stream)
}

type updateStreamRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility"`
	Slug        *string `json:"slug"`
	IsLive      *bool   `json:"isLive"`
	HlsURL      *string `json:"hlsUrl"`
}

// HandleUpdate applies a partial update to a stream the caller owns.
//
// PATCH /api/streams/{idOrSlug}
//
// Absent fields keep their value; a present empty string clears optional
// fields. A payload carrying no recognized field is rejected outright.
func (h *StreamHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	idOrSlug := r.PathValue("idOrSlug")
	if idOrSlug == "" {
		writeError(w, apperror.ValidationFailed("idOrSlug", "stream identifier is required"))
		return
	}

	var req updateStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid JSON body"))
		return
	}

	in := service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Slug:        req.Slug,
		IsLive:      req.IsLive,
		HlsURL:      req.HlsURL,
	}
	if req.Visibility != nil {
		v := model.Visibility(*req.Visibility)
		in.Visibility = &v
	}
	if in.Empty() {
		writeError(w, apperror.ValidationFailed("", "update must set at least one field"))
		return
	}

	stream, err := h.streams.Update(r.Context(), idOrSlug, auth.CallerID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stream)
}

// HandleDelete removes a stream the caller owns.
//
// DELETE /api/streams/{idOrSlug}
func (h *StreamHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	idOrSlug := r.PathValue("idOrSlug")
	if idOrSlug == "" {
		writeError(w, apperror.ValidationFailed("idOrSlug", "stream identifier is required"))
		return
	}

	if err := h.streams.Delete(r.Context(), idOrSlug, auth.CallerID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func parseVisibilityParams(values []string) []model.Visibility {
	var out []model.Visibility
	for _, raw := range values {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, model.Visibility(v))
			}
		}
	}
	return out
}

func parseIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

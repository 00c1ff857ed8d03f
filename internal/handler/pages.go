package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
	"github.com/sakif/streamhub/internal/service"
)

// PageHandler renders the server-side HTML pages. Each page template is
// parsed together with base.html so they all share the layout; rendering
// executes the "base" template.
type PageHandler struct {
	home      *template.Template
	explore   *template.Template
	dashboard *template.Template
	streams   *service.StreamService
	auth      *service.AuthService
	logger    *slog.Logger
}

// NewPageHandler parses the page templates from templateDir.
func NewPageHandler(
	templateDir string,
	streams *service.StreamService,
	authService *service.AuthService,
	logger *slog.Logger,
) (*PageHandler, error) {
	pages := map[string]**template.Template{}
	h := &PageHandler{
		streams: streams,
		auth:    authService,
		logger:  logger,
	}
	pages["home.html"] = &h.home
	pages["streams.html"] = &h.explore
	pages["dashboard.html"] = &h.dashboard

	for page, dst := range pages {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, page),
		)
		if err != nil {
			return nil, err
		}
		*dst = tmpl
	}

	return h, nil
}

// pageData is the payload every page template receives.
type pageData struct {
	Title   string
	User    *model.User // nil when the visitor is anonymous
	Streams []model.Stream

	// Explore filter state, echoed back so the form keeps its values.
	Query      string
	Live       bool
	Mine       bool
	Visibility map[string]bool
}

// currentUser resolves the optional session on page routes. Pages render
// for everyone; the user just personalizes the chrome.
func (h *PageHandler) currentUser(r *http.Request) *model.User {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}

func (h *PageHandler) render(w http.ResponseWriter, tmpl *template.Template, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", data.Title),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleHome renders the landing page with the live streams up top.
//
// GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)

	streams, err := h.streams.List(r.Context(), callerID(user), service.ListInput{
		Order: repository.OrderLiveFirst,
		Take:  12,
	})
	if err != nil {
		h.logger.Error("home: listing streams failed", slog.String("error", err.Error()))
		streams = nil
	}

	h.render(w, h.home, pageData{
		Title:   "StreamHub",
		User:    user,
		Streams: streams,
	})
}

// HandleExplore renders the searchable stream directory.
//
// GET /streams?q=&live=&mine=&visibility=
//
// live narrows to streams currently live, mine to the visitor's own
// (ignored for anonymous visitors rather than failing the page), and
// visibility is a repeatable checkbox filter.
func (h *PageHandler) HandleExplore(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	q := r.URL.Query()

	query := q.Get("q")
	live := q.Get("live") == "true"
	mine := q.Get("mine") == "true" && user != nil
	visibility := parseVisibilityParams(q["visibility"])

	in := service.ListInput{
		Search:     query,
		Mine:       mine,
		Visibility: visibility,
		Order:      repository.OrderLiveFirst,
		Take:       service.MaxListLimit,
	}
	if live {
		isLive := true
		in.IsLive = &isLive
	}

	streams, err := h.streams.List(r.Context(), callerID(user), in)
	if err != nil {
		h.logger.Error("explore: listing streams failed", slog.String("error", err.Error()))
		streams = nil
	}

	selected := make(map[string]bool, len(visibility))
	for _, v := range visibility {
		selected[string(v)] = true
	}

	h.render(w, h.explore, pageData{
		Title:      "Explore — StreamHub",
		User:       user,
		Streams:    streams,
		Query:      query,
		Live:       live,
		Mine:       mine,
		Visibility: selected,
	})
}

// HandleDashboard renders the caller's own streams, private ones included.
// Anonymous visitors are sent to the home page.
//
// GET /dashboard
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	streams, err := h.streams.List(r.Context(), user.ID, service.ListInput{
		Mine: true,
		Take: service.MaxListLimit,
	})
	if err != nil {
		h.logger.Error("dashboard: listing streams failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		streams = nil
	}

	h.render(w, h.dashboard, pageData{
		Title:   "Dashboard — StreamHub",
		User:    user,
		Streams: streams,
	})
}

func callerID(user *model.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}

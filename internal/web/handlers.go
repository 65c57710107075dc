package web

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"livekeeper/internal/cache"
	"livekeeper/internal/config"
	"livekeeper/internal/ics"
	appLog "livekeeper/internal/log"
	"livekeeper/internal/model"
	"livekeeper/internal/rank"
	"livekeeper/internal/status"
)

// eventsKey is the cache key of the raw listing. Ranking is redone per
// request since it depends on the current time.
const eventsKey = "events"

// maxHistoricalDays bounds the historical_days query parameter.
const maxHistoricalDays = 31

//go:embed templates/index.html.tmpl
var indexHTML string

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"fmtTime": func(t time.Time) string { return t.Format("Mon 2 Jan 2006, 15:04 MST") },
}).Parse(indexHTML))

// broadcastDTO is the JSON view of one ranked event.
type broadcastDTO struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Start      *time.Time `json:"start,omitempty"`
	Status     string     `json:"status"`
	StatusKind string     `json:"status_kind"`
	Live       bool       `json:"live"`
	WatchURL   string     `json:"watch_url"`
	EmbedURL   string     `json:"embed_url"`
	EditURL    string     `json:"edit_url"`
}

// broadcastsResponse is the JSON response shape for /api/broadcasts.
type broadcastsResponse struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Timezone    string         `json:"timezone"`
	Current     *broadcastDTO  `json:"current"`
	Streamable  []broadcastDTO `json:"streamable"`
	Historical  []broadcastDTO `json:"historical"`
}

type pageData struct {
	Title   string
	Now     time.Time
	Support *config.SupportContact
	Data    broadcastsResponse
}

func (s *Server) toDTO(e model.Event) broadcastDTO {
	st := status.Of(e)
	d := broadcastDTO{
		ID:         e.ID,
		Title:      e.Title,
		Status:     st.String(),
		StatusKind: st.Kind.String(),
		Live:       st.Kind == status.LiveNow,
		WatchURL:   model.WatchURL(e.ID),
		EmbedURL:   model.EmbedURL(e.ID, true),
		EditURL:    model.EditURL(e.ID),
	}
	if start, ok := e.Start(); ok {
		local := start.In(s.loc)
		d.Start = &local
	}
	return d
}

// listEvents returns every event on the endpoint, through the cache.
func (s *Server) listEvents(ctx context.Context) ([]model.Event, error) {
	data, err := cache.Fetch(ctx, s.cache, eventsKey, s.cfg.WebServer.CacheTTL, func(ctx context.Context) ([]byte, error) {
		endpointID, err := s.endpoint(ctx)
		if err != nil {
			return nil, err
		}
		events, err := s.repo.ListEvents(ctx, endpointID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(events)
	})
	if err != nil {
		return nil, err
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Invalidate drops the cached listing so the next request sees changes
// made by a reconciliation run.
func (s *Server) Invalidate(ctx context.Context) {
	if err := s.cache.Set(ctx, eventsKey, nil, 0); err != nil {
		appLog.Warn("cache invalidate failed", "error", err.Error())
	}
}

func (s *Server) broadcasts(ctx context.Context, days int) (broadcastsResponse, error) {
	events, err := s.listEvents(ctx)
	if err != nil {
		return broadcastsResponse{}, err
	}

	now := s.clock.NowUTC()
	streamable, historical := rank.Rank(events, now)
	historical = rank.RecentHistorical(historical, now, days)

	resp := broadcastsResponse{
		GeneratedAt: now.In(s.loc),
		Timezone:    s.loc.String(),
		Streamable:  make([]broadcastDTO, 0, len(streamable)),
		Historical:  make([]broadcastDTO, 0, len(historical)),
	}
	for _, e := range streamable {
		resp.Streamable = append(resp.Streamable, s.toDTO(e))
	}
	for _, e := range historical {
		resp.Historical = append(resp.Historical, s.toDTO(e))
	}
	if len(resp.Streamable) > 0 {
		cur := resp.Streamable[0]
		resp.Current = &cur
	}
	return resp, nil
}

// historicalDays reads ?historical_days=N, falling back to the config.
func (s *Server) historicalDays(r *http.Request) int {
	days := parseIntDefault(r.URL.Query().Get("historical_days"), s.cfg.WebServer.HistoricalDays)
	if days < 0 {
		days = s.cfg.WebServer.HistoricalDays
	}
	return min(days, maxHistoricalDays)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleBroadcasts returns the ranked event lists.
//
// GET /api/broadcasts?historical_days=2
func (s *Server) handleBroadcasts(w http.ResponseWriter, r *http.Request) {
	resp, err := s.broadcasts(r.Context(), s.historicalDays(r))
	if err != nil {
		appLog.Error("api broadcasts: listing failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load broadcasts")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	resp, err := s.broadcasts(r.Context(), s.historicalDays(r))
	if err != nil {
		appLog.Error("index: listing failed", err)
		http.Error(w, "failed to load broadcasts", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Title:   s.cfg.WebServer.PageTitle,
		Now:     s.clock.NowIn(s.loc),
		Support: s.cfg.WebServer.SupportContact,
		Data:    resp,
	}

	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		appLog.Error("index: template failed", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleCalendar exports streamable and recent historical events.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	events, err := s.listEvents(r.Context())
	if err != nil {
		appLog.Error("calendar: listing failed", err)
		http.Error(w, "failed to load broadcasts", http.StatusInternalServerError)
		return
	}

	now := s.clock.NowUTC()
	streamable, historical := rank.Rank(events, now)
	feed := append(streamable, rank.RecentHistorical(historical, now, s.historicalDays(r))...)

	body := ics.Feed(feed, ics.FeedOptions{
		Name:     s.cfg.WebServer.PageTitle,
		Timezone: s.loc.String(),
		Stamp:    now,
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="livekeeper.ics"`)
	_, _ = w.Write([]byte(body))
}

// handlePreview serves the last snapshot written by `livekeeper snapshot`.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.previewPath == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	// ServeFile answers 404 for a missing file and 500 for other errors.
	http.ServeFile(w, r, s.previewPath)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, code, errResp{Error: msg})
}

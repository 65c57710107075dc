package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	appLog "livekeeper/internal/log"
	"livekeeper/internal/model"
	"livekeeper/internal/repository"
)

const pageSize = 50

// StreamTitle is the title given to ingest endpoints created by livekeeper.
const StreamTitle = "livekeeper stream"

// ResolveIngestEndpoint finds the live stream whose stream name equals key,
// creating a reusable one when none exists. Listing is retried on 5xx.
func (c *Client) ResolveIngestEndpoint(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("youtube: empty stream key")
	}

	streams, err := c.listStreams(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range streams {
		if s.CDN.IngestionInfo.StreamName == key && s.ID != "" {
			return s.ID, nil
		}
	}

	appLog.Info("no live stream matches key; creating one", "streams_seen", len(streams))
	var body liveStream
	body.Snippet.Title = StreamTitle
	body.CDN.IngestionType = "rtmp"
	body.CDN.Resolution = "variable"
	body.CDN.FrameRate = "variable"
	body.CDN.IngestionInfo.StreamName = key
	body.ContentDetails = &streamContentDetails{IsReusable: true}

	var created liveStream
	q := url.Values{"part": {"snippet,cdn,contentDetails"}}
	if err := c.do(ctx, http.MethodPost, "/liveStreams", q, body, &created); err != nil {
		return "", fmt.Errorf("youtube: create live stream: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("youtube: create live stream: no id returned")
	}
	return created.ID, nil
}

func (c *Client) listStreams(ctx context.Context) ([]liveStream, error) {
	var all []liveStream
	seen := make(map[string]bool)
	token := ""
	for {
		q := url.Values{
			"part":       {"id,snippet,cdn"},
			"mine":       {"true"},
			"maxResults": {strconv.Itoa(pageSize)},
		}
		if token != "" {
			q.Set("pageToken", token)
		}

		var page liveStreamList
		attempt := 0
		op := func() error {
			attempt++
			page = liveStreamList{}
			err := c.do(ctx, http.MethodGet, "/liveStreams", q, nil, &page)
			if err == nil {
				return nil
			}
			if !IsServerError(err) {
				return backoff.Permanent(err)
			}
			appLog.Warn("listing live streams failed; retrying", "attempt", attempt, "error", err.Error())
			return err
		}
		if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
			return nil, fmt.Errorf("youtube: list live streams: %w", err)
		}

		all = append(all, page.Items...)
		next, err := nextPage(seen, token, page.NextPageToken)
		if err != nil {
			return nil, fmt.Errorf("youtube: list live streams: %w", err)
		}
		if next == "" {
			return all, nil
		}
		token = next
	}
}

// nextPage records the current token and validates the next one. A token
// that comes back twice would loop forever, so it is an error.
func nextPage(seen map[string]bool, current, next string) (string, error) {
	seen[current] = true
	if next == "" {
		return "", nil
	}
	if seen[next] {
		return "", fmt.Errorf("page token %q repeated", next)
	}
	return next, nil
}

// ListEvents returns every broadcast bound to endpointID.
func (c *Client) ListEvents(ctx context.Context, endpointID string) ([]model.Event, error) {
	events := make([]model.Event, 0)
	seen := make(map[string]bool)
	token := ""
	pages := 0
	for {
		q := url.Values{
			"part":            {"id,snippet,status,contentDetails"},
			"broadcastStatus": {"all"},
			"maxResults":      {strconv.Itoa(pageSize)},
		}
		if token != "" {
			q.Set("pageToken", token)
		}

		var page liveBroadcastList
		if err := c.do(ctx, http.MethodGet, "/liveBroadcasts", q, nil, &page); err != nil {
			return nil, fmt.Errorf("youtube: list broadcasts: %w", err)
		}
		pages++
		for _, b := range page.Items {
			if b.ContentDetails.BoundStreamID == endpointID {
				events = append(events, b.toEvent())
			}
		}

		next, err := nextPage(seen, token, page.NextPageToken)
		if err != nil {
			return nil, fmt.Errorf("youtube: list broadcasts: %w", err)
		}
		if next == "" {
			break
		}
		token = next
	}
	appLog.Debug("listed broadcasts", "endpoint_id", endpointID, "pages", pages, "bound", len(events))
	return events, nil
}

// CreateEvent inserts a broadcast. Video-level settings are applied later by
// UpdateEventSettings because the video resource may not exist yet.
func (c *Client) CreateEvent(ctx context.Context, ev repository.NewEvent) (model.Event, error) {
	s := ev.Settings
	body := liveBroadcast{
		Snippet: broadcastSnippet{
			Title:              ev.Title,
			Description:        ev.Description,
			ScheduledStartTime: ev.Start.Format(time.RFC3339),
			CategoryID:         s.CategoryID,
			Tags:               s.Labels,
		},
		Status: broadcastStatus{
			PrivacyStatus: s.PrivacyStatus,
		},
		ContentDetails: broadcastContentDetails{
			EnableAutoStart:   s.EnableAutoStart,
			EnableAutoStop:    s.EnableAutoStop,
			EnableDvr:         s.EnableDVR,
			EnableEmbed:       s.EnableEmbed,
			RecordFromStart:   true,
			LatencyPreference: "normal",
			MonitorStream:     &monitorStream{EnableMonitorStream: false},
		},
	}

	var created liveBroadcast
	q := url.Values{"part": {"snippet,status,contentDetails"}}
	if err := c.do(ctx, http.MethodPost, "/liveBroadcasts", q, body, &created); err != nil {
		return model.Event{}, fmt.Errorf("youtube: create broadcast %q: %w", ev.Title, err)
	}
	if created.ID == "" {
		return model.Event{}, fmt.Errorf("youtube: create broadcast %q: no id returned", ev.Title)
	}
	return created.toEvent(), nil
}

func (c *Client) BindEvent(ctx context.Context, eventID, endpointID string) (model.Event, error) {
	q := url.Values{
		"id":       {eventID},
		"streamId": {endpointID},
		"part":     {"id,snippet,status,contentDetails"},
	}
	var bound liveBroadcast
	if err := c.do(ctx, http.MethodPost, "/liveBroadcasts/bind", q, nil, &bound); err != nil {
		return model.Event{}, fmt.Errorf("youtube: bind %s to %s: %w", eventID, endpointID, err)
	}
	return bound.toEvent(), nil
}

// UpdateEventSettings sets category, language, labels and visibility on the
// video behind a broadcast, then tries to disable live chat. It returns
// repository.ErrNotMaterialized when the video does not exist yet. A chat
// update failure is only logged.
func (c *Client) UpdateEventSettings(ctx context.Context, eventID string, s repository.Settings) error {
	var current videoList
	q := url.Values{"part": {"snippet,status"}, "id": {eventID}}
	if err := c.do(ctx, http.MethodGet, "/videos", q, nil, &current); err != nil {
		return fmt.Errorf("youtube: get video %s: %w", eventID, err)
	}
	if len(current.Items) == 0 || current.Items[0].Snippet == nil {
		return fmt.Errorf("youtube: video %s: %w", eventID, repository.ErrNotMaterialized)
	}

	update := video{
		ID: eventID,
		Snippet: &videoSnippet{
			// The API rejects a snippet update without the title.
			Title:                current.Items[0].Snippet.Title,
			CategoryID:           s.CategoryID,
			Tags:                 s.Labels,
			DefaultLanguage:      s.Language,
			DefaultAudioLanguage: s.Language,
		},
		Status: &videoStatus{
			PrivacyStatus:       s.PrivacyStatus,
			PublicStatsViewable: !s.HideViewCount,
			Embeddable:          s.EnableEmbed,
		},
	}
	q = url.Values{"part": {"snippet,status"}}
	if err := c.do(ctx, http.MethodPut, "/videos", q, update, nil); err != nil {
		return fmt.Errorf("youtube: update video %s: %w", eventID, err)
	}

	chat := chatUpdate{ID: eventID}
	q = url.Values{"part": {"liveStreamingDetails"}}
	if err := c.do(ctx, http.MethodPut, "/videos", q, chat, nil); err != nil {
		appLog.Warn("could not disable live chat", "event_id", eventID, "error", err.Error())
	}
	return nil
}

func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	q := url.Values{"id": {eventID}}
	if err := c.do(ctx, http.MethodDelete, "/liveBroadcasts", q, nil, nil); err != nil {
		return fmt.Errorf("youtube: delete broadcast %s: %w", eventID, err)
	}
	return nil
}

// FetchLabels returns video tags for up to repository.MaxLabelBatch IDs in
// one videos.list call.
func (c *Client) FetchLabels(ctx context.Context, eventIDs []string) (map[string][]string, error) {
	if len(eventIDs) > repository.MaxLabelBatch {
		return nil, fmt.Errorf("youtube: %d ids: %w", len(eventIDs), repository.ErrBatchTooLarge)
	}
	out := make(map[string][]string, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	var list videoList
	q := url.Values{
		"part":       {"snippet"},
		"id":         {strings.Join(eventIDs, ",")},
		"maxResults": {strconv.Itoa(repository.MaxLabelBatch)},
	}
	if err := c.do(ctx, http.MethodGet, "/videos", q, nil, &list); err != nil {
		return nil, fmt.Errorf("youtube: list video tags: %w", err)
	}
	for _, v := range list.Items {
		if v.ID == "" {
			continue
		}
		var tags []string
		if v.Snippet != nil {
			tags = v.Snippet.Tags
		}
		out[v.ID] = tags
	}
	return out, nil
}

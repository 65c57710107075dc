package youtube

import (
	"time"

	"livekeeper/internal/model"
)

// Wire types cover only the fields livekeeper reads or writes.

type liveStream struct {
	ID      string `json:"id,omitempty"`
	Snippet struct {
		Title string `json:"title,omitempty"`
	} `json:"snippet"`
	CDN struct {
		IngestionType string `json:"ingestionType,omitempty"`
		Resolution    string `json:"resolution,omitempty"`
		FrameRate     string `json:"frameRate,omitempty"`
		IngestionInfo struct {
			StreamName string `json:"streamName,omitempty"`
		} `json:"ingestionInfo"`
	} `json:"cdn"`
	ContentDetails *streamContentDetails `json:"contentDetails,omitempty"`
}

type streamContentDetails struct {
	IsReusable bool `json:"isReusable"`
}

type liveStreamList struct {
	Items         []liveStream `json:"items"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
}

type broadcastSnippet struct {
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	ScheduledStartTime string   `json:"scheduledStartTime,omitempty"`
	CategoryID         string   `json:"categoryId,omitempty"`
	Tags               []string `json:"tags,omitempty"`
}

type broadcastStatus struct {
	LifeCycleStatus         string `json:"lifeCycleStatus,omitempty"`
	RecordingStatus         string `json:"recordingStatus,omitempty"`
	PrivacyStatus           string `json:"privacyStatus,omitempty"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

type monitorStream struct {
	EnableMonitorStream bool `json:"enableMonitorStream"`
}

type broadcastContentDetails struct {
	BoundStreamID        string         `json:"boundStreamId,omitempty"`
	EnableAutoStart      bool           `json:"enableAutoStart"`
	EnableAutoStop       bool           `json:"enableAutoStop"`
	EnableDvr            bool           `json:"enableDvr"`
	EnableEmbed          bool           `json:"enableEmbed"`
	EnableClosedCaptions bool           `json:"enableClosedCaptions"`
	RecordFromStart      bool           `json:"recordFromStart"`
	StartWithSlate       bool           `json:"startWithSlate"`
	LatencyPreference    string         `json:"latencyPreference,omitempty"`
	MonitorStream        *monitorStream `json:"monitorStream,omitempty"`
}

type liveBroadcast struct {
	ID             string                  `json:"id,omitempty"`
	Snippet        broadcastSnippet        `json:"snippet"`
	Status         broadcastStatus         `json:"status"`
	ContentDetails broadcastContentDetails `json:"contentDetails"`
}

type liveBroadcastList struct {
	Items         []liveBroadcast `json:"items"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
}

type videoSnippet struct {
	Title                string   `json:"title"`
	CategoryID           string   `json:"categoryId,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	DefaultLanguage      string   `json:"defaultLanguage,omitempty"`
	DefaultAudioLanguage string   `json:"defaultAudioLanguage,omitempty"`
}

type videoStatus struct {
	PrivacyStatus           string `json:"privacyStatus,omitempty"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
	PublicStatsViewable     bool   `json:"publicStatsViewable"`
	Embeddable              bool   `json:"embeddable"`
}

type video struct {
	ID      string        `json:"id"`
	Snippet *videoSnippet `json:"snippet,omitempty"`
	Status  *videoStatus  `json:"status,omitempty"`
}

type videoList struct {
	Items []video `json:"items"`
}

type chatUpdate struct {
	ID                   string `json:"id"`
	LiveStreamingDetails struct {
		EnableChat bool `json:"enableChat"`
	} `json:"liveStreamingDetails"`
}

// toEvent maps a broadcast payload into the domain model. A missing or
// malformed scheduledStartTime leaves the start zero.
func (b liveBroadcast) toEvent() model.Event {
	var start time.Time
	if b.Snippet.ScheduledStartTime != "" {
		if t, err := time.Parse(time.RFC3339, b.Snippet.ScheduledStartTime); err == nil {
			start = t
		}
	}
	return model.Event{
		ID:             b.ID,
		Title:          b.Snippet.Title,
		Description:    b.Snippet.Description,
		ScheduledStart: start,
		Lifecycle:      model.ParseLifecycle(b.Status.LifeCycleStatus),
		Recording:      model.ParseRecording(b.Status.RecordingStatus),
		BoundStreamID:  b.ContentDetails.BoundStreamID,
		Labels:         b.Snippet.Tags,
	}
}

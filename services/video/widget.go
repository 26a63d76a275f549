// Package videosvc holds the video-call collaborators: the embedded
// meeting widget configuration, the external meeting API client and the
// per-call WebRTC signaling relay. It stops at the command/config
// boundary; no media flows through here.
package videosvc

import (
	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

// WidgetConfig is the join configuration handed to the embedded meeting
// widget on the client.
type WidgetConfig struct {
	Domain      string `json:"domain"`
	Room        string `json:"room"`
	DisplayName string `json:"display_name"`
	StartMuted  bool   `json:"start_muted"`
	SkipPreJoin bool   `json:"skip_pre_join"`
}

type Widget struct {
	conf *core.Config
}

func NewWidget(conf *core.Config) *Widget {
	return &Widget{conf: conf}
}

// JoinConfig builds the widget configuration for a participant joining
// the given session's call. The room name is derived from the session ID
// so both parties land in the same room.
func (w *Widget) JoinConfig(s session.Session, displayName string) WidgetConfig {
	return WidgetConfig{
		Domain:      w.conf.Meeting.WidgetDomain,
		Room:        "darasa-" + s.ID,
		DisplayName: displayName,
		StartMuted:  true,
		SkipPreJoin: true,
	}
}

package http

import (
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Meet/internal/config"
)

// ICEServers maps the server config to the shape browsers feed straight
// into RTCPeerConnection. The relay never opens these itself.
func ICEServers(cfg *config.Config) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(cfg.StunServers)+1)
	for _, u := range cfg.StunServers {
		out = append(out, webrtc.ICEServer{URLs: []string{u}})
	}
	if cfg.TurnURL != "" {
		out = append(out, webrtc.ICEServer{
			URLs:       []string{cfg.TurnURL},
			Username:   cfg.TurnUsername,
			Credential: cfg.TurnCredential,
		})
	}
	return out
}

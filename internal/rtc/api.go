// Package rtc implements the peer transport on pion WebRTC, signaled through a
// PeerJS-compatible broker.
package rtc

import (
	"fmt"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
)

// DefaultICEServers is used when none are configured.
var DefaultICEServers = []string{"stun:stun.l.google.com:19302"}

// APIOptions tune the pion API.
type APIOptions struct {
	// IncludeLoopback gathers loopback candidates, for single-host setups.
	IncludeLoopback bool
}

// NewAPI builds a pion API with the default codecs, the default interceptors
// and periodic keyframe requests on received video.
func NewAPI(opts APIOptions) (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}
	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("pli interceptor: %w", err)
	}
	i.Add(pli)

	s := webrtc.SettingEngine{}
	if opts.IncludeLoopback {
		s.SetIncludeLoopbackCandidate(true)
	}

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
		webrtc.WithSettingEngine(s),
	), nil
}

// Configuration builds a peer connection configuration from ICE server URLs.
func Configuration(servers []string) webrtc.Configuration {
	if len(servers) == 0 {
		servers = DefaultICEServers
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: servers}},
	}
}

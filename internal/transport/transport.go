// Package transport defines the peer-to-peer surface the client is built on:
// reliable data connections and media calls keyed by peer id.
package transport

import "github.com/matheus3301/peerchat/internal/media"

// Frame is one message received on or sent to a data connection.
// Text frames carry JSON; binary frames carry raw bytes.
type Frame struct {
	Binary bool
	Data   []byte
}

// TextFrame wraps s as a text frame.
func TextFrame(s string) Frame {
	return Frame{Data: []byte(s)}
}

// BinaryFrame wraps b as a binary frame.
func BinaryFrame(b []byte) Frame {
	return Frame{Binary: true, Data: b}
}

// ConnectOptions tune an outgoing data connection.
type ConnectOptions struct {
	Reliable bool
	Label    string
}

// DataConn is a bidirectional data channel to one peer.
//
// Callbacks may be registered at any time; OnOpen registered after the
// connection opened runs immediately.
type DataConn interface {
	Peer() string
	Open() bool
	Send(f Frame) error
	Close() error
	OnOpen(fn func())
	OnData(fn func(Frame))
	OnClose(fn func())
	OnError(fn func(error))
}

// TrackInfo is a snapshot of a remote track's identity.
type TrackInfo struct {
	ID         string
	Kind       string
	Label      string
	ReadyState string
}

// RemoteStream is the inbound media of a call.
type RemoteStream interface {
	ID() string
	VideoTracks() []TrackInfo
	AudioTracks() []TrackInfo
}

// MediaConn is an audio/video call with one peer.
type MediaConn interface {
	Peer() string
	// Answer accepts an incoming call, sending stream (which may be nil).
	Answer(stream *media.Stream) error
	Close() error
	// ReplaceVideoTrack swaps the outbound video without renegotiation.
	// A nil track stops sending video.
	ReplaceVideoTrack(t media.Track) error
	OnStream(fn func(RemoteStream))
	OnClose(fn func())
	OnError(fn func(error))
}

// Dialer opens outgoing connections and calls.
type Dialer interface {
	Connect(peerID string, opts ConnectOptions) (DataConn, error)
	Call(peerID string, stream *media.Stream) (MediaConn, error)
}

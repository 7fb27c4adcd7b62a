package room

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestJoinSendsForm(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/join" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		got = map[string]string{
			"roomId":   r.PostForm.Get("roomId"),
			"peerId":   r.PostForm.Get("peerId"),
			"username": r.PostForm.Get("username"),
		}
		_, _ = w.Write([]byte("Joined room: lobby"))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", zap.NewNop())
	if err := c.Join(context.Background(), "lobby", "p1", "Ann Lee"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	want := map[string]string{"roomId": "lobby", "peerId": "p1", "username": "Ann Lee"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestJoinNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad room", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(srv.URL, zap.NewNop()).Join(context.Background(), "", "p1", "")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Status != http.StatusBadRequest {
		t.Errorf("status = %d", se.Status)
	}
}

func TestPeersBothShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get_peers" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = r.ParseForm()
		if r.PostForm.Get("roomId") != "lobby" {
			t.Errorf("roomId = %q", r.PostForm.Get("roomId"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"peers":["a",{"id":"b","name":"Bea"},{"id":"c"},42,{"name":"no id"},""]}`))
	}))
	defer srv.Close()

	peers, err := New(srv.URL, zap.NewNop()).Peers(context.Background(), "lobby")
	if err != nil {
		t.Fatalf("Peers() error = %v", err)
	}
	want := []Peer{{ID: "a"}, {ID: "b", Name: "Bea"}, {ID: "c"}}
	if len(peers) != len(want) {
		t.Fatalf("peers = %+v, want %+v", peers, want)
	}
	for i := range want {
		if peers[i] != want[i] {
			t.Errorf("peers[%d] = %+v, want %+v", i, peers[i], want[i])
		}
	}
}

func TestPeersNonStringNameKeepsID(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"id":"bob","name":5}`),
		json.RawMessage(`{"id":"carol","name":null}`),
		json.RawMessage(`{"id":"dave","name":{"first":"D"}}`),
		json.RawMessage(`{"id":"erin","name":"Erin"}`),
	}
	peers := parsePeers(raw, zap.NewNop())
	want := []Peer{{ID: "bob"}, {ID: "carol"}, {ID: "dave"}, {ID: "erin", Name: "Erin"}}
	if len(peers) != len(want) {
		t.Fatalf("peers = %+v, want %+v", peers, want)
	}
	for i := range want {
		if peers[i] != want[i] {
			t.Errorf("peers[%d] = %+v, want %+v", i, peers[i], want[i])
		}
	}
}

func TestPeersEmptyRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"peers":[]}`))
	}))
	defer srv.Close()

	peers, err := New(srv.URL, zap.NewNop()).Peers(context.Background(), "empty")
	if err != nil {
		t.Fatal(err)
	}
	if len(peers) != 0 {
		t.Errorf("peers = %v", peers)
	}
}

func TestPeersBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL, zap.NewNop()).Peers(context.Background(), "x"); err == nil {
		t.Error("expected decode error")
	}
}

package blob

import (
	"errors"
	"testing"
	"time"
)

func TestCreateAndOpen(t *testing.T) {
	r := NewRegistry(time.Minute)
	defer r.Close()

	ref := r.Create([]byte("abc"), "text/plain")
	if !IsRef(ref) {
		t.Fatalf("ref %q missing scheme", ref)
	}
	data, ct, err := r.Open(ref)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "abc" || ct != "text/plain" {
		t.Errorf("got (%q, %q), want (abc, text/plain)", data, ct)
	}
}

func TestRevokedAfterGrace(t *testing.T) {
	r := NewRegistry(20 * time.Millisecond)
	defer r.Close()

	ref := r.Create([]byte{1, 2, 3}, "application/octet-stream")

	deadline := time.After(2 * time.Second)
	for {
		if _, _, err := r.Open(ref); errors.Is(err, ErrRevoked) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("reference was not revoked after grace window")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRevokeIdempotent(t *testing.T) {
	r := NewRegistry(time.Minute)
	ref := r.Create([]byte("x"), "")
	r.Revoke(ref)
	r.Revoke(ref)
	if _, _, err := r.Open(ref); !errors.Is(err, ErrRevoked) {
		t.Errorf("err = %v, want ErrRevoked", err)
	}
}

func TestOpenUnknown(t *testing.T) {
	r := NewRegistry(0)
	if _, _, err := r.Open("blob:peerchat/nope"); !errors.Is(err, ErrRevoked) {
		t.Errorf("err = %v, want ErrRevoked", err)
	}
}

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/evenly-app/evenly/internal/models"
)

// streamOnce serves one SSE frame (preceded by a keep-alive comment) and
// then ends the response, closing the stream server-side.
func streamOnce(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": keep-alive\n\n")
	fmt.Fprint(w, `data: {"eventId":"ABC234","kind":"title_edited","title":"renamed"}`+"\n\n")
}

func TestSubscribeServerCloseEndsStream(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)

	ts := httptest.NewServer(http.HandlerFunc(streamOnce))
	defer ts.Close()

	changes, errc, err := New(ts.URL).Subscribe(context.Background(), "ABC234")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case ch := <-changes:
		if ch.Kind != models.ChangeTitleEdited || ch.Title != "renamed" {
			t.Errorf("decoded change = %+v", ch)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame never arrived")
	}

	if _, ok := <-changes; ok {
		t.Error("changes channel not closed after server close")
	}
	select {
	case err := <-errc:
		if !errors.Is(err, io.EOF) {
			t.Errorf("stream end error = %v, want io.EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream end never reported")
	}
}

func TestSubscribeCancelTearsDown(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	changes, errc, err := New(ts.URL).Subscribe(ctx, "ABC234")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	cancel()

	if _, ok := <-changes; ok {
		t.Error("changes channel not closed after cancel")
	}
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancel error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation never reported")
	}
}

package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evenly-app/evenly/internal/models"
)

// Subscribe opens the per-event change stream (Server-Sent Events) and
// returns a channel of decoded changes. The transport delivers changes in
// the order the server committed them; this reader preserves that order.
//
// The changes channel is closed when the stream ends; exactly one error
// is then sent on the error channel (io.EOF for a server-side close,
// ctx.Err() for local cancellation, a decode error for a malformed
// frame). Cancelling ctx tears the connection down promptly.
func (c *Client) Subscribe(ctx context.Context, eventID string) (<-chan models.Change, <-chan error, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events/"+eventID+"/updates", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The stream stays open indefinitely, so bypass the client timeout.
	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe %s: %w", eventID, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", eventID, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("subscribe %s: server returned %d", eventID, resp.StatusCode)
	}

	changes := make(chan models.Change)
	errc := make(chan error, 1)
	go c.readStream(ctx, resp.Body, changes, errc)
	return changes, errc, nil
}

// readStream parses SSE frames off the wire and forwards decoded changes.
// Frames are "data: <json>" lines terminated by a blank line; comment
// lines (leading ':') are server keep-alives and are skipped.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, changes chan<- models.Change, errc chan<- error) {
	defer close(changes)
	defer body.Close()

	// Tear the read loop down as soon as the subscription is cancelled,
	// even if no frame is in flight. The watcher itself must not outlive
	// a stream that ends server-side.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			body.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ":"):
			continue
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "":
			if data.Len() == 0 {
				continue
			}
			var ch models.Change
			if err := json.Unmarshal([]byte(data.String()), &ch); err != nil {
				errc <- fmt.Errorf("malformed change frame: %w", err)
				return
			}
			data.Reset()
			select {
			case changes <- ch:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		default:
			// Unknown SSE fields (event:, id:, retry:) are not used by
			// this server; ignore them.
			slog.Debug("ignoring stream field", "line", line)
		}
	}

	if ctx.Err() != nil {
		errc <- ctx.Err()
		return
	}
	if err := scanner.Err(); err != nil {
		errc <- fmt.Errorf("stream read: %w", err)
		return
	}
	errc <- io.EOF
}

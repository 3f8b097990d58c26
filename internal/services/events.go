package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/desertthunder/shffl/internal/shared"
)

// EventSource is a one-way server-push channel reading a text/event-stream response.
//
// Callbacks must be registered before [EventSource.Open]. At most one of them runs at a time.
type EventSource struct {
	client *http.Client
	url    string

	onFrame func([]byte)
	onError func(error)

	mu     sync.Mutex
	opened bool
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEventSource creates an unopened source for url.
func NewEventSource(client *http.Client, url string) *EventSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &EventSource{client: client, url: url, done: make(chan struct{})}
}

// URL returns the stream URL.
func (e *EventSource) URL() string { return e.url }

// OnFrame registers the handler for the data of each "message" event.
func (e *EventSource) OnFrame(fn func([]byte)) { e.onFrame = fn }

// OnError registers the handler for the single terminal transport failure.
func (e *EventSource) OnError(fn func(error)) { e.onError = fn }

// Open starts the request and the reader goroutine. Connection failures are reported through OnError, not here.
func (e *EventSource) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("%w: source already closed", shared.ErrStreamFailed)
	}
	if e.opened {
		return fmt.Errorf("%w: source already open", shared.ErrStreamFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	ctx, e.cancel = context.WithCancel(ctx)
	e.opened = true

	go e.run(ctx, req.WithContext(ctx))
	return nil
}

// Close stops the source. It is idempotent. Frames read after it returns are not dispatched, though a callback
// already running may still finish.
func (e *EventSource) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	} else {
		close(e.done)
	}
}

// Done is closed once the reader goroutine has exited (or immediately for a source closed before Open).
func (e *EventSource) Done() <-chan struct{} { return e.done }

// Closed reports whether the source has been closed, either explicitly or after a failure.
func (e *EventSource) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *EventSource) run(ctx context.Context, req *http.Request) {
	defer close(e.done)

	resp, err := e.client.Do(req)
	if err != nil {
		e.fail(ctx, fmt.Errorf("%w: %v", shared.ErrStreamFailed, err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.fail(ctx, fmt.Errorf("%w: status %d", shared.ErrStreamFailed, resp.StatusCode))
		return
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		e.fail(ctx, fmt.Errorf("%w: unexpected content type %q", shared.ErrStreamFailed, mt))
		return
	}

	err = readEvents(resp.Body, func(data []byte) bool {
		e.mu.Lock()
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return false
		}
		if e.onFrame != nil {
			e.onFrame(data)
		}
		return true
	})
	if err != nil {
		e.fail(ctx, fmt.Errorf("%w: %v", shared.ErrStreamFailed, err))
		return
	}
	e.fail(ctx, shared.ErrStreamClosed)
}

// fail closes the source and reports err, unless the source was closed or its context cancelled first.
func (e *EventSource) fail(ctx context.Context, err error) {
	e.mu.Lock()
	if e.closed || ctx.Err() != nil {
		e.closed = true
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.cancel()
	e.mu.Unlock()

	if e.onError != nil {
		e.onError(err)
	}
}

// readEvents parses an event stream and calls dispatch with the data of every "message" event, in order.
// It returns nil at EOF and stops early when dispatch returns false.
func readEvents(r io.Reader, dispatch func([]byte) bool) error {
	br := bufio.NewReader(r)

	var (
		data      strings.Builder
		eventType string
	)

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		// an unterminated final line is an incomplete event and is dropped
		if errors.Is(err, io.EOF) {
			return nil
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if data.Len() > 0 && (eventType == "" || eventType == "message") {
				payload := strings.TrimSuffix(data.String(), "\n")
				if !dispatch([]byte(payload)) {
					return nil
				}
			}
			data.Reset()
			eventType = ""
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
		case "event":
			eventType = value
		}
	}
}

package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// KeepAlive is how often an idle stream gets a comment line so proxies keep it open
const KeepAlive = 15 * time.Second

// ErrNoFlusher is returned when the response writer cannot stream
var ErrNoFlusher = errors.New("streaming unsupported")

// Writer sends events on one open event stream
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// Open writes the event-stream headers and flushes them so the client sees the
// connection established before the first event
func Open(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNoFlusher
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering in nginx/proxies
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Writer{w: w, flusher: flusher}, nil
}

// Send writes one event with data as its payload
func (s *Writer) Send(event, data string) error {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(event)
	b.WriteByte('\n')
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// SendJSON marshals v as the event payload
func (s *Writer) SendJSON(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	return s.Send(event, string(data))
}

// Ping writes a comment line
func (s *Writer) Ping() error {
	if _, err := io.WriteString(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Message is one event read back from a stream
type Message struct {
	Event string
	Data  string
}

// Read parses an event stream, calling out for each event until out returns
// false or r ends. Comment lines are skipped.
func Read(r io.Reader, out func(Message) bool) error {
	sc := bufio.NewScanner(r)
	var (
		msg  Message
		data []string
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if msg.Event == "" && len(data) == 0 {
				continue
			}
			msg.Data = strings.Join(data, "\n")
			if !out(msg) {
				return nil
			}
			msg, data = Message{}, nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			msg.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return sc.Err()
}

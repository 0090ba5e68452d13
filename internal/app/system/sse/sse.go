// Package sse writes Server-Sent Events to an http.ResponseWriter.
//
// A stream is one long-lived GET. Each event carries a name and an HTML
// fragment; the browser side (htmx sse extension) swaps the fragment into
// the element listening for that name.
package sse

import (
	"bytes"
	"errors"
	"net/http"
)

// ErrNoFlush is returned when the ResponseWriter cannot stream.
var ErrNoFlush = errors.New("sse: response writer does not support flushing")

// Stream is an open event stream.
type Stream struct {
	w http.ResponseWriter
	f http.Flusher
}

// Start writes the stream headers and flushes them.
func Start(w http.ResponseWriter) (*Stream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNoFlush
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &Stream{w: w, f: f}, nil
}

// Event sends one named event. Multi-line data is split into several data
// fields as the protocol requires.
func (s *Stream) Event(name string, data []byte) error {
	var b bytes.Buffer
	if name != "" {
		b.WriteString("event: ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	for _, line := range bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n")) {
		b.WriteString("data: ")
		b.Write(bytes.TrimRight(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if _, err := s.w.Write(b.Bytes()); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// Comment sends a comment line, used as a keep-alive.
func (s *Stream) Comment(text string) error {
	if _, err := s.w.Write([]byte(": " + text + "\n\n")); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// Buffer is an in-memory ResponseWriter used to render a template fragment
// before sending it as event data.
type Buffer struct {
	bytes.Buffer
	header http.Header
	Code   int
}

// Header implements http.ResponseWriter.
func (b *Buffer) Header() http.Header {
	if b.header == nil {
		b.header = make(http.Header)
	}
	return b.header
}

// WriteHeader implements http.ResponseWriter.
func (b *Buffer) WriteHeader(code int) { b.Code = code }

// Capture runs render against a Buffer and returns what it wrote.
func Capture(render func(w http.ResponseWriter)) []byte {
	var b Buffer
	render(&b)
	return b.Bytes()
}

// Package sse decodes the chat endpoint's server-sent event stream into frames.
//
// The wire format is line oriented. Only lines starting with "data: " carry a
// payload; every other line (blank separators, comments, other fields) is
// ignored. A payload is either the literal [DONE] marker or a JSON object
// with a token or error field.
package sse

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

const (
	// DataPrefix starts every payload line.
	DataPrefix = "data: "

	// DoneMarker is the payload that ends a response.
	DoneMarker = "[DONE]"
)

// Decoder splits arbitrarily chunked input into payloads. A line is only
// decoded once its terminating newline has arrived; the unterminated tail is
// kept for the next chunk.
type Decoder struct {
	buf []byte
}

// Feed appends chunk and returns the payloads of every completed line.
func (d *Decoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var payloads []string
	start := 0
	for {
		i := bytes.IndexByte(d.buf[start:], '\n')
		if i < 0 {
			break
		}
		if p, ok := payload(d.buf[start : start+i]); ok {
			payloads = append(payloads, p)
		}
		start += i + 1
	}

	if start > 0 {
		d.buf = append(d.buf[:0], d.buf[start:]...)
	}
	return payloads
}

// Flush decodes the unterminated tail at end of input.
func (d *Decoder) Flush() []string {
	tail := d.buf
	d.buf = nil
	if p, ok := payload(tail); ok {
		return []string{p}
	}
	return nil
}

// Buffered returns the number of bytes waiting for a newline.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func payload(line []byte) (string, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, []byte(DataPrefix)) {
		return "", false
	}
	return string(line[len(DataPrefix):]), true
}

// record is the JSON shape of a non-terminal payload.
type record struct {
	Token *string `json:"token"`
	Error *string `json:"error"`
}

// ParseFrame interprets one payload. It returns false for payloads that
// carry nothing: malformed JSON (logged and skipped) and objects with neither
// a token nor an error. An error field wins over a token in the same object.
func ParseFrame(p string) (domain.Frame, bool) {
	if strings.TrimSpace(p) == DoneMarker {
		return domain.DoneFrame(), true
	}

	var rec record
	if err := json.Unmarshal([]byte(p), &rec); err != nil {
		logger.Warn("sse: skipping malformed frame %q: %v", p, err)
		return domain.Frame{}, false
	}
	if rec.Error != nil && *rec.Error != "" {
		return domain.ErrorFrame(*rec.Error), true
	}
	if rec.Token != nil && *rec.Token != "" {
		return domain.TokenFrame(*rec.Token), true
	}
	return domain.Frame{}, false
}

// Package stream demultiplexes the agent's token stream into plain text
// and embedded directives.
//
// The wire grammar is <<<KIND:payload:KIND>>> with KIND one of STATUS or
// ACTION, emitted inline by the agent with no chunk alignment guarantees.
// The grammar is produced by a language model, so it is treated as an
// untrusted protocol: the scanner is an explicit state machine rather
// than a regex pass, because payloads may contain substrings that look
// like partial delimiters and delimiters may straddle chunk boundaries.
package stream

import (
	"log/slog"
	"strings"
)

// EventKind discriminates demultiplexed events.
type EventKind int

const (
	EventText EventKind = iota
	EventStatus
	EventAction
)

// Event is one demultiplexed item from the stream: a run of plain text,
// a status update, or an action directive.
type Event struct {
	Kind   EventKind
	Text   string  // EventText
	Status string  // EventStatus; empty message clears the indicator
	Action *Action // EventAction
}

const (
	openMark  = "<<<"
	closeMark = ">>>"
)

var kinds = [...]string{"STATUS", "ACTION"}

// Demuxer splits an incrementally delivered token stream into Text and
// Directive events. It is stateful and belongs to exactly one chat
// session; it is not safe for concurrent use.
type Demuxer struct {
	buf    string
	logger *slog.Logger
}

// NewDemuxer creates a demuxer for one stream.
func NewDemuxer(logger *slog.Logger) *Demuxer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Demuxer{logger: logger}
}

// Feed appends a chunk to the internal buffer and returns all events
// that can be emitted so far. Text that may still grow into a directive
// (or ends mid-word) is held back until more input or Flush.
func (d *Demuxer) Feed(chunk string) []Event {
	d.buf += chunk
	return d.drain()
}

// Flush emits whatever remains at end of stream. An unterminated
// directive span degrades to literal text; it is never silently dropped.
func (d *Demuxer) Flush() []Event {
	out := d.drain()
	if d.buf != "" {
		out = append(out, Event{Kind: EventText, Text: d.buf})
		d.buf = ""
	}
	return out
}

func (d *Demuxer) drain() []Event {
	var out []Event
	for {
		i := strings.Index(d.buf, openMark)
		if i < 0 {
			// No directive can start here. Emit up to the last newline
			// so a half-formed word is not echoed, hold the rest.
			if nl := strings.LastIndexByte(d.buf, '\n'); nl >= 0 {
				out = appendText(out, d.buf[:nl+1])
				d.buf = d.buf[nl+1:]
			}
			return out
		}

		rest := d.buf[i+len(openMark):]
		kind, state := matchKind(rest)
		switch state {
		case kindMatched:
			term := ":" + kind + closeMark
			payloadStart := i + len(openMark) + len(kind) + 1
			t := strings.Index(d.buf[payloadStart:], term)
			if t < 0 {
				// Pending: terminator not seen yet. Emit the preceding
				// text, keep the whole span buffered.
				out = appendText(out, d.buf[:i])
				d.buf = d.buf[i:]
				return out
			}
			payload := d.buf[payloadStart : payloadStart+t]
			out = appendText(out, d.buf[:i])
			if ev, ok := d.directive(kind, payload); ok {
				out = append(out, ev)
			}
			d.buf = d.buf[payloadStart+t+len(term):]

		case kindPartial:
			// The opener might continue into a recognized kind; wait.
			out = appendText(out, d.buf[:i])
			d.buf = d.buf[i:]
			return out

		default:
			// A lone <<< is not an error, it is literal text.
			out = appendText(out, d.buf[:i+len(openMark)])
			d.buf = d.buf[i+len(openMark):]
		}
	}
}

type kindState int

const (
	kindNone kindState = iota
	kindPartial
	kindMatched
)

// matchKind inspects the text following "<<<". It reports a full match
// ("STATUS:" or "ACTION:" prefix), a partial match (the text is a proper
// prefix of one and may still complete), or no match.
func matchKind(rest string) (string, kindState) {
	for _, k := range kinds {
		prefix := k + ":"
		if strings.HasPrefix(rest, prefix) {
			return k, kindMatched
		}
		if len(rest) < len(prefix) && strings.HasPrefix(prefix, rest) {
			return "", kindPartial
		}
	}
	return "", kindNone
}

func (d *Demuxer) directive(kind, payload string) (Event, bool) {
	switch kind {
	case "STATUS":
		return Event{Kind: EventStatus, Status: payload}, true
	case "ACTION":
		a, err := ParseAction([]byte(payload))
		if err != nil {
			// Drop the span, keep processing the rest of the stream.
			d.logger.Warn("stream: malformed action directive",
				slog.String("error", err.Error()))
			return Event{}, false
		}
		return Event{Kind: EventAction, Action: a}, true
	}
	return Event{}, false
}

func appendText(out []Event, text string) []Event {
	if text == "" {
		return out
	}
	return append(out, Event{Kind: EventText, Text: text})
}

package dev

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/quillfox/devgate/internal/types"
)

// defaultEvent is the SSE event name when no event: line has been seen.
const defaultEvent = "message"

// readChunkSize is the upstream read buffer size.
const readChunkSize = 4096

// Stream converts the Dev backend's SSE byte stream into chat completion
// chunks. It is pull-driven: each Next call advances the parse until one
// chunk is ready, the stream finishes, or a fault occurs. A Stream handles
// exactly one response body and is not safe for concurrent use.
type Stream struct {
	body      io.ReadCloser
	requestID string
	model     string
	logger    *slog.Logger

	acc *Accumulator

	buf       string   // decoded text not yet consumed
	eventName string   // pending event name
	dataLines []string // pending data lines
	readBuf   []byte

	srcDone    bool
	terminated bool
}

// NewStream wraps an upstream response body. The request id and model name
// are stamped on every emitted chunk unchanged.
func NewStream(body io.ReadCloser, requestID, model string, logger *slog.Logger) *Stream {
	return &Stream{
		body:      body,
		requestID: requestID,
		model:     model,
		logger:    logger,
		acc:       &Accumulator{},
		eventName: defaultEvent,
		readBuf:   make([]byte, readChunkSize),
	}
}

// Accumulator exposes the per-stream aggregate. Its terminal state is only
// meaningful once Next has returned io.EOF.
func (s *Stream) Accumulator() *Accumulator {
	return s.acc
}

// Next returns the next translated chunk. After the terminal chunk (or a
// silent close following an earlier error chunk) it returns io.EOF.
func (s *Stream) Next() (*types.ChatCompletionChunk, error) {
	if s.terminated {
		return nil, io.EOF
	}

	for {
		// Drain complete lines from the buffer first.
		for {
			idx := strings.IndexByte(s.buf, '\n')
			if idx < 0 {
				break
			}
			line := strings.TrimSuffix(s.buf[:idx], "\r")
			s.buf = s.buf[idx+1:]

			chunk := s.consumeLine(line)
			if chunk == nil {
				continue
			}
			if s.acc.IsFinished {
				// An error event closed the stream; nothing after this
				// chunk is consumed or emitted.
				s.terminated = true
			}
			return chunk, nil
		}

		if s.srcDone {
			return s.finalize()
		}

		n, err := s.body.Read(s.readBuf)
		if n > 0 {
			raw := s.readBuf[:n]
			// Each received chunk is decoded independently; a multi-byte
			// character split across chunks fails the stream.
			if !utf8.Valid(raw) {
				return s.fail("invalid UTF-8 in upstream chunk")
			}
			s.buf += string(raw)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.srcDone = true
			} else {
				return s.fail("upstream read error: " + err.Error())
			}
		}
	}
}

// Close releases the upstream body. Safe to call at any point; a consumer
// that stops pulling mid-stream triggers no further side effects.
func (s *Stream) Close() error {
	s.terminated = true
	s.buf = ""
	s.dataLines = nil
	return s.body.Close()
}

// consumeLine feeds one line to the SSE parser. A blank line completes the
// pending event and may dispatch into a chunk.
func (s *Stream) consumeLine(line string) *types.ChatCompletionChunk {
	if line == "" {
		var chunk *types.ChatCompletionChunk
		if len(s.dataLines) > 0 {
			data := strings.Join(s.dataLines, "\n")
			s.dataLines = nil
			chunk = applyEvent(s.acc, s.eventName, data, s.requestID, s.model, s.logger)
		}
		// The event name resets whether or not data was present.
		s.eventName = defaultEvent
		return chunk
	}
	if strings.HasPrefix(line, ":") {
		return nil // comment
	}

	field, value := splitField(line)
	switch field {
	case "event":
		s.eventName = value
	case "data":
		s.dataLines = append(s.dataLines, value)
	default:
		// "id", "retry" and unrecognized fields are ignored.
	}
	return nil
}

// splitField splits an SSE line at the first colon and strips a single
// leading space from the value.
func splitField(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimPrefix(line[idx+1:], " ")
}

// finalize flushes the residual buffer and closes the logical stream: one
// terminal "stop" chunk for a normal end, or silent termination when an
// error event already closed it.
func (s *Stream) finalize() (*types.ChatCompletionChunk, error) {
	// A trailing partial line is parsed as if it had been terminated.
	if s.buf != "" {
		line := strings.TrimSuffix(s.buf, "\r")
		s.buf = ""
		if line != "" && !strings.HasPrefix(line, ":") {
			field, value := splitField(line)
			switch field {
			case "event":
				s.eventName = value
			case "data":
				s.dataLines = append(s.dataLines, value)
			}
		}
	}

	// A still-pending event is dispatched for its accumulator side effects
	// only; the stream is closing, so its would-be chunk is not emitted.
	if len(s.dataLines) > 0 {
		data := strings.Join(s.dataLines, "\n")
		s.dataLines = nil
		applyEvent(s.acc, s.eventName, data, s.requestID, s.model, s.logger)
	}

	s.terminated = true
	if s.acc.IsFinished {
		// An earlier error event already produced the closing chunk.
		return nil, io.EOF
	}
	s.acc.finalize()
	return finalChunk(s.requestID, s.model, types.FinishReasonStop), nil
}

// fail closes the stream with a single error chunk, bypassing any buffered
// data. No further input is consumed.
func (s *Stream) fail(message string) (*types.ChatCompletionChunk, error) {
	s.logger.Error("stream terminated", "request_id", s.requestID, "error", message)
	s.acc.Error = message
	s.acc.IsFinished = true
	s.terminated = true
	s.buf = ""
	s.dataLines = nil
	return errorChunk(s.requestID, s.model, message), nil
}

// Package dev implements the Dev chat backend provider: signed request
// construction and translation of the backend's incremental SSE event stream
// into OpenAI-compatible chat completion chunks.
package dev

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is a backend action record: a required integer type plus arbitrary
// extra fields preserved in a side-map.
type Action struct {
	Type  int
	Extra map[string]json.RawMessage
}

// UnmarshalJSON captures the type field and keeps unrecognized keys in Extra.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, ok := raw["type"]
	if !ok {
		return fmt.Errorf("action object has no type field")
	}
	if err := json.Unmarshal(t, &a.Type); err != nil {
		return fmt.Errorf("action type is not an integer: %w", err)
	}
	delete(raw, "type")
	if len(raw) > 0 {
		a.Extra = raw
	}
	return nil
}

// Source is a citation the backend attaches to an answer.
type Source struct {
	Title string
	URL   string
	Extra map[string]json.RawMessage
}

// UnmarshalJSON keeps unrecognized keys in Extra.
func (s *Source) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := takeString(raw, "title", &s.Title); err != nil {
		return err
	}
	if err := takeString(raw, "url", &s.URL); err != nil {
		return err
	}
	if len(raw) > 0 {
		s.Extra = raw
	}
	return nil
}

// GithubSource is a repository citation.
type GithubSource struct {
	Repo     string
	FilePath string
	Extra    map[string]json.RawMessage
}

// UnmarshalJSON keeps unrecognized keys in Extra.
func (s *GithubSource) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := takeString(raw, "repo", &s.Repo); err != nil {
		return err
	}
	if err := takeString(raw, "filePath", &s.FilePath); err != nil {
		return err
	}
	if len(raw) > 0 {
		s.Extra = raw
	}
	return nil
}

// takeString moves a string-valued key out of raw into dst. A null or absent
// key leaves dst empty; a non-string value is a parse error.
func takeString(raw map[string]json.RawMessage, key string, dst *string) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	delete(raw, key)
	if string(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("field %q is not a string: %w", key, err)
	}
	return nil
}

// Accumulator aggregates one full logical backend response as it is
// assembled from stream events. It lives for exactly one request/response
// cycle and is never reused.
type Accumulator struct {
	Text          string
	Actions       []Action
	Sources       []Source
	GithubSources []GithubSource

	// RelatedQuestions is derived from relatedRaw once, at finalization.
	RelatedQuestions []string
	relatedRaw       string

	ThreadID        string
	QueryMessageID  string
	AnswerMessageID string
	ThreadTitle     string
	Reasoning       string

	// IsFinished flips false→true exactly once; afterwards the accumulator
	// is not mutated and no further chunks are emitted.
	IsFinished bool
	Error      string
}

// appendRelated buffers one related-question event.
func (a *Accumulator) appendRelated(data string) {
	a.relatedRaw += "\n" + strings.TrimSpace(data)
}

// finalize derives the related-question list and marks the response done.
func (a *Accumulator) finalize() {
	for _, q := range strings.Split(a.relatedRaw, "\n") {
		q = strings.TrimSpace(q)
		if q != "" {
			a.RelatedQuestions = append(a.RelatedQuestions, q)
		}
	}
	a.IsFinished = true
}

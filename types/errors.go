package types

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindFetchFailed            Kind = "fetch_failed"
	KindParseFailed            Kind = "parse_failed"
	KindIncompleteRecord       Kind = "incomplete_record"
	KindReconciliationMismatch Kind = "reconciliation_mismatch"
	KindExternalToolFailed     Kind = "external_tool_failed"
	KindFilesystemConflict     Kind = "filesystem_conflict"
)

var (
	ErrFetchFailed            = errors.New("fetch failed")
	ErrParseFailed            = errors.New("parse failed")
	ErrIncompleteRecord       = errors.New("incomplete record")
	ErrReconciliationMismatch = errors.New("reconciliation mismatch")
	ErrExternalToolFailed     = errors.New("external tool failed")
	ErrFilesystemConflict     = errors.New("filesystem conflict")
)

var kindSentinels = map[Kind]error{
	KindFetchFailed:            ErrFetchFailed,
	KindParseFailed:            ErrParseFailed,
	KindIncompleteRecord:       ErrIncompleteRecord,
	KindReconciliationMismatch: ErrReconciliationMismatch,
	KindExternalToolFailed:     ErrExternalToolFailed,
	KindFilesystemConflict:     ErrFilesystemConflict,
}

// Error carries the diagnostic context of a pipeline failure. It matches
// both its kind sentinel and the underlying cause with errors.Is.
type Error struct {
	Kind    Kind
	Stage   string
	URL     string
	Field   string
	Snippet string
	Tool    string
	Path    string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(kindSentinels[e.Kind].Error())
	if e.Stage != "" {
		b.WriteString(" at " + e.Stage)
	}
	if e.Tool != "" {
		b.WriteString(" (" + e.Tool + ")")
	}
	if e.URL != "" {
		b.WriteString(" for " + e.URL)
	}
	if e.Field != "" {
		b.WriteString(": missing field " + e.Field)
	}
	if e.Path != "" {
		b.WriteString(": " + e.Path + " already exists")
	}
	if nil != e.Err {
		b.WriteString(": " + e.Err.Error())
	}
	if e.Snippet != "" {
		fmt.Fprintf(&b, " [context: %q]", e.Snippet)
	}

	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := []error{kindSentinels[e.Kind]}
	if nil != e.Err {
		errs = append(errs, e.Err)
	}

	return errs
}

func FetchFailed(stage, url string, err error) error {
	return &Error{Kind: KindFetchFailed, Stage: stage, URL: url, Err: err} //nolint:exhaustruct
}

func ParseFailed(stage, url, snippet string, err error) error {
	return &Error{Kind: KindParseFailed, Stage: stage, URL: url, Snippet: snippet, Err: err} //nolint:exhaustruct
}

func IncompleteRecord(url, field string) error {
	return &Error{Kind: KindIncompleteRecord, Stage: "release", URL: url, Field: field} //nolint:exhaustruct
}

func ExternalToolFailed(tool, stderr string, err error) error {
	return &Error{Kind: KindExternalToolFailed, Tool: tool, Snippet: stderr, Err: err} //nolint:exhaustruct
}

func FilesystemConflict(path string) error {
	return &Error{Kind: KindFilesystemConflict, Path: path} //nolint:exhaustruct
}

// KindOf reports the taxonomy kind of err, or "" if it has none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	for k, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return k
		}
	}

	return ""
}

type UnmatchedReason string

const (
	ReasonUnavailable UnmatchedReason = "unavailable"
	ReasonNoMatch     UnmatchedReason = "no_match"
)

type UnmatchedEntry struct {
	Entry  PlaylistEntry
	Reason UnmatchedReason
}

type MismatchError struct {
	UnmatchedTracks  []TrackInfo
	UnmatchedEntries []UnmatchedEntry
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"%s: %d unmatched track(s), %d unmatched playlist entr(ies)",
		ErrReconciliationMismatch.Error(),
		len(e.UnmatchedTracks),
		len(e.UnmatchedEntries),
	)
}

func (e *MismatchError) Unwrap() error {
	return ErrReconciliationMismatch
}

package core

import (
	"context"
	"time"

	"mediaref/pkg/medialink"
)

// DetectionState tracks where an item sits in the detection state machine.
type DetectionState int

const (
	// StateIdle indicates no detection activity for the item
	StateIdle DetectionState = iota
	// StateValidating indicates the synchronous classification pass is running
	StateValidating
	// StateNoMatch indicates the input matched no supported platform
	StateNoMatch
	// StateDetecting indicates an asynchronous extraction request is in flight
	StateDetecting
	// StateResolved indicates the latest extraction merged into the reference
	StateResolved
	// StateFailed indicates the latest extraction ended in an error
	StateFailed
)

// String returns the lowercase wire name of the state.
func (s DetectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateNoMatch:
		return "no_match"
	case StateDetecting:
		return "detecting"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// DetectionSession tracks the in-flight extraction bookkeeping for one item.
// It is never persisted.
type DetectionSession struct {
	LatestSeq uint64
	State     DetectionState
}

// ContentItem is one entry of a content payload: either an image reference or
// a media reference with its playback window.
type ContentItem struct {
	ImageURL string               `json:"image_url,omitempty"`
	Media    *medialink.Reference `json:"media,omitempty"`
	Window   *PlaybackWindow      `json:"window,omitempty"`
}

// ContentPayload is the ordered item sequence attached to a content record.
type ContentPayload struct {
	Items []ContentItem `json:"items"`
}

// ContentRecord is a stored content entry keyed by owner and id.
type ContentRecord struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Payload   ContentPayload `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// User identifies an authenticated caller.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// LinkResolver resolves a raw URL to a media reference. A (nil, nil) return
// means no platform claimed the URL.
type LinkResolver interface {
	Extract(ctx context.Context, url string) (*medialink.Reference, error)
	CanExtract(url string) bool
}

// ContentStore persists and retrieves content records.
type ContentStore interface {
	CreateContent(ctx context.Context, ownerID string, payload ContentPayload) (string, error)
	GetContent(ctx context.Context, id string) (*ContentRecord, error)
	ListContentByOwner(ctx context.Context, ownerID string) ([]ContentRecord, error)
}

// MetricsRecorder receives detection engine observations. Implementations
// must tolerate concurrent calls.
type MetricsRecorder interface {
	RecordValidation(platform string, valid bool)
	RecordDetection(platform, status string)
	RecordStaleDrop()
	SetActiveItems(count int)
}

// noopMetrics is used when no recorder is wired in.
type noopMetrics struct{}

func (noopMetrics) RecordValidation(string, bool)  {}
func (noopMetrics) RecordDetection(string, string) {}
func (noopMetrics) RecordStaleDrop()               {}
func (noopMetrics) SetActiveItems(int)             {}

package core

import (
	"errors"

	"mediaref/pkg/timecode"
)

var (
	// ErrInvalidTimecode is returned when a user time field does not match
	// the (H:)?MM:SS shape.
	ErrInvalidTimecode = errors.New("invalid timecode, expected M:SS or H:MM:SS")
	// ErrNoDetectedStart is returned when there is no positive detected
	// start offset to apply.
	ErrNoDetectedStart = errors.New("no detected start offset to apply")
)

// EndBeforeStartWarning is the soft-validation message reported when the end
// field does not lie after the start field. The edit is still accepted.
const EndBeforeStartWarning = "end time must be after start time"

// PlaybackWindow reconciles a start offset detected in the URL with the
// start/end timecodes the user types by hand. Whatever is currently in the
// user fields wins; a detected value is only ever a suggestion applied
// through ApplyDetectedToUser.
type PlaybackWindow struct {
	UserStart          string `json:"user_start"`
	UserEnd            string `json:"user_end"`
	UserOverrideActive bool   `json:"user_override_active"`

	DetectedStartSeconds int  `json:"detected_start_seconds,omitempty"`
	HasDetectedStart     bool `json:"has_detected_start,omitempty"`
}

// EffectiveWindow is the parsed playback range. Duration is present only
// when the end lies strictly after the start.
type EffectiveWindow struct {
	StartSeconds    int  `json:"start_seconds"`
	EndSeconds      int  `json:"end_seconds"`
	DurationSeconds int  `json:"duration_seconds,omitempty"`
	HasDuration     bool `json:"has_duration"`
}

// IngestDetectedStart caches the start offset detected in the URL. While the
// user has not edited either field it also auto-populates the start field as
// a convenience default; that default does not count as a user override, so a
// later detection overwrites it with the newly detected value.
func (w *PlaybackWindow) IngestDetectedStart(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	w.DetectedStartSeconds = seconds
	w.HasDetectedStart = true

	if !w.UserOverrideActive && w.UserEnd == "" && seconds > 0 {
		w.UserStart = timecode.FormatSeconds(seconds)
	}
}

// SetUserStart updates the start field from user input. A non-empty accepted
// value marks the window as user-overridden. The returned warning is the
// soft end-before-start condition; it never rejects the edit.
func (w *PlaybackWindow) SetUserStart(text string) (string, error) {
	return w.setUserField(&w.UserStart, text)
}

// SetUserEnd updates the end field from user input, with the same acceptance
// and warning rules as SetUserStart.
func (w *PlaybackWindow) SetUserEnd(text string) (string, error) {
	return w.setUserField(&w.UserEnd, text)
}

func (w *PlaybackWindow) setUserField(field *string, text string) (string, error) {
	if !timecode.Validate(text) {
		return "", ErrInvalidTimecode
	}

	*field = text
	w.UserOverrideActive = w.UserStart != "" || w.UserEnd != ""

	return w.Warning(), nil
}

// ApplyDetectedToUser copies the cached detected offset into the start field
// as formatted text. It is valid only when a positive offset was detected.
func (w *PlaybackWindow) ApplyDetectedToUser() error {
	if !w.HasDetectedStart || w.DetectedStartSeconds <= 0 {
		return ErrNoDetectedStart
	}

	w.UserStart = timecode.FormatSeconds(w.DetectedStartSeconds)
	w.UserOverrideActive = true
	return nil
}

// ClearUserOverrides empties both fields and drops the override flag. The
// cached detected offset survives the clear.
func (w *PlaybackWindow) ClearUserOverrides() {
	w.UserStart = ""
	w.UserEnd = ""
	w.UserOverrideActive = false
}

// Warning reports the soft end-before-start condition, or "" when the window
// is consistent or incomplete.
func (w *PlaybackWindow) Warning() string {
	if w.UserStart == "" || w.UserEnd == "" {
		return ""
	}
	if timecode.ParseSeconds(w.UserEnd) <= timecode.ParseSeconds(w.UserStart) {
		return EndBeforeStartWarning
	}
	return ""
}

// EffectiveWindow parses the current user fields into the playback range.
func (w *PlaybackWindow) EffectiveWindow() EffectiveWindow {
	start := timecode.ParseSeconds(w.UserStart)
	end := timecode.ParseSeconds(w.UserEnd)

	ew := EffectiveWindow{
		StartSeconds: start,
		EndSeconds:   end,
	}
	if end > start {
		ew.DurationSeconds = end - start
		ew.HasDuration = true
	}
	return ew
}

package core

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"mediaref/pkg/medialink"
)

// Orchestrator drives the per-item detection state machine. Every URL change
// re-runs the synchronous classification pass; plausible inputs issue an
// asynchronous extraction tagged with a monotonic sequence number. Only the
// response to the most recently issued request is ever merged; an older
// response arriving later is dropped, so last-issued wins.
type Orchestrator struct {
	resolver LinkResolver
	logger   *zap.Logger
	metrics  MetricsRecorder

	// onStateChange, when set, observes every state transition. It is
	// called without the item lock held.
	onStateChange func(itemID string, state DetectionState)

	itemsMutex sync.Mutex
	items      map[string]*mediaItem
}

// mediaItem owns one item's reference, window and detection session. It is
// only ever mutated under the orchestrator lock, so the sequence-number
// check is a cooperative substitute for cancellation.
type mediaItem struct {
	ref     medialink.Reference
	window  PlaybackWindow
	session DetectionSession
}

// ItemSnapshot is a copy of one item's state, safe to hand to callers.
type ItemSnapshot struct {
	ItemID    string              `json:"item_id"`
	State     string              `json:"state"`
	Reference medialink.Reference `json:"reference"`
	Window    PlaybackWindow      `json:"window"`
	Effective EffectiveWindow     `json:"effective_window"`
}

// NewOrchestrator creates a detection orchestrator around a link resolver.
// A nil metrics recorder is replaced with a no-op one.
func NewOrchestrator(resolver LinkResolver, metrics MetricsRecorder, logger *zap.Logger) *Orchestrator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Orchestrator{
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
		items:    make(map[string]*mediaItem),
	}
}

// SetStateObserver registers a callback invoked on every state transition.
func (o *Orchestrator) SetStateObserver(fn func(itemID string, state DetectionState)) {
	o.onStateChange = fn
}

// ValidateNow runs the synchronous classification pass with no side effects
// on item state. Safe to call on every keystroke.
func (o *Orchestrator) ValidateNow(url string) medialink.ValidationResult {
	result := medialink.Classify(url)
	o.metrics.RecordValidation(string(result.Platform), result.Valid)
	return result
}

// OnURLChanged ingests a new URL for an item, fire-and-forget. The item is
// created on first use.
func (o *Orchestrator) OnURLChanged(itemID, url string) {
	o.itemsMutex.Lock()

	item := o.ensureItemLocked(itemID)
	item.ref = medialink.Reference{RawURL: url}
	item.session.State = StateValidating

	result := medialink.Classify(url)
	o.metrics.RecordValidation(string(result.Platform), result.Valid)

	// YouTube keyword presence alone is enough to try extraction: shapes
	// the quick check rejects (short live ids) may still resolve.
	plausible := result.Valid || result.Platform == medialink.PlatformYouTube
	if !plausible {
		if result.Platform != "" {
			item.ref.Platform = result.Platform
		} else {
			item.ref.Platform = medialink.PlatformUnknown
		}
		item.session.State = StateNoMatch
		o.itemsMutex.Unlock()

		o.notify(itemID, StateValidating)
		o.notify(itemID, StateNoMatch)
		return
	}

	item.session.LatestSeq++
	seq := item.session.LatestSeq
	item.session.State = StateDetecting
	o.itemsMutex.Unlock()

	o.notify(itemID, StateValidating)
	o.notify(itemID, StateDetecting)

	go o.detect(itemID, url, seq)
}

// detect runs one extraction request and applies its result if it is still
// the latest issued for the item.
func (o *Orchestrator) detect(itemID, url string, seq uint64) {
	ctx := context.Background()

	ref, err := o.resolver.Extract(ctx, url)

	o.itemsMutex.Lock()
	item, exists := o.items[itemID]
	if !exists {
		o.itemsMutex.Unlock()
		return
	}

	if seq != item.session.LatestSeq {
		o.itemsMutex.Unlock()
		o.metrics.RecordStaleDrop()
		o.logger.Debug("Dropping superseded extraction result",
			zap.String("itemID", itemID),
			zap.Uint64("seq", seq))
		return
	}

	state := o.applyResultLocked(item, url, ref, err)
	item.session.State = state
	o.itemsMutex.Unlock()

	o.notify(itemID, state)
}

func (o *Orchestrator) applyResultLocked(item *mediaItem, url string, ref *medialink.Reference, err error) DetectionState {
	if err != nil {
		// Keep the raw URL, clear everything platform-specific.
		item.ref = medialink.Reference{RawURL: url}
		o.metrics.RecordDetection(string(medialink.PlatformUnknown), "failed")
		o.logger.Warn("Extraction failed", zap.String("url", url), zap.Error(err))
		return StateFailed
	}

	if ref == nil {
		item.ref = medialink.Reference{RawURL: url, Platform: medialink.PlatformUnknown}
		o.metrics.RecordDetection(string(medialink.PlatformUnknown), "no_match")
		return StateNoMatch
	}

	item.ref = *ref
	item.ref.RawURL = url

	status := "resolved"
	if ref.Identifier == "" {
		status = "partial"
	}
	o.metrics.RecordDetection(string(ref.Platform), status)

	if ref.HasURLStart {
		item.window.IngestDetectedStart(ref.URLStartSeconds)
	}

	return StateResolved
}

// Item returns a copy of the item's current state.
func (o *Orchestrator) Item(itemID string) (ItemSnapshot, bool) {
	o.itemsMutex.Lock()
	defer o.itemsMutex.Unlock()

	item, exists := o.items[itemID]
	if !exists {
		return ItemSnapshot{}, false
	}
	return o.snapshotLocked(itemID, item), true
}

// SetWindowStart updates the item's start timecode. The item is created on
// first use so users can enter times before pasting a URL.
func (o *Orchestrator) SetWindowStart(itemID, text string) (PlaybackWindow, string, error) {
	return o.updateWindow(itemID, func(w *PlaybackWindow) (string, error) {
		return w.SetUserStart(text)
	})
}

// SetWindowEnd updates the item's end timecode.
func (o *Orchestrator) SetWindowEnd(itemID, text string) (PlaybackWindow, string, error) {
	return o.updateWindow(itemID, func(w *PlaybackWindow) (string, error) {
		return w.SetUserEnd(text)
	})
}

// ApplyDetectedWindow copies the detected start offset into the user field.
func (o *Orchestrator) ApplyDetectedWindow(itemID string) (PlaybackWindow, error) {
	window, _, err := o.updateWindow(itemID, func(w *PlaybackWindow) (string, error) {
		return "", w.ApplyDetectedToUser()
	})
	return window, err
}

// ClearWindow resets both user fields and the override flag.
func (o *Orchestrator) ClearWindow(itemID string) PlaybackWindow {
	window, _, _ := o.updateWindow(itemID, func(w *PlaybackWindow) (string, error) {
		w.ClearUserOverrides()
		return "", nil
	})
	return window
}

// RemoveItem discards all state for an item. In-flight extraction results
// for a removed item are dropped on arrival.
func (o *Orchestrator) RemoveItem(itemID string) {
	o.itemsMutex.Lock()
	defer o.itemsMutex.Unlock()
	delete(o.items, itemID)
	o.metrics.SetActiveItems(len(o.items))
}

// ActiveItems returns the number of tracked items.
func (o *Orchestrator) ActiveItems() int {
	o.itemsMutex.Lock()
	defer o.itemsMutex.Unlock()
	return len(o.items)
}

func (o *Orchestrator) updateWindow(itemID string, fn func(*PlaybackWindow) (string, error)) (PlaybackWindow, string, error) {
	o.itemsMutex.Lock()
	defer o.itemsMutex.Unlock()

	item := o.ensureItemLocked(itemID)
	warning, err := fn(&item.window)
	return item.window, warning, err
}

func (o *Orchestrator) ensureItemLocked(itemID string) *mediaItem {
	item, exists := o.items[itemID]
	if !exists {
		item = &mediaItem{session: DetectionSession{State: StateIdle}}
		o.items[itemID] = item
		o.metrics.SetActiveItems(len(o.items))
	}
	return item
}

func (o *Orchestrator) snapshotLocked(itemID string, item *mediaItem) ItemSnapshot {
	return ItemSnapshot{
		ItemID:    itemID,
		State:     item.session.State.String(),
		Reference: item.ref,
		Window:    item.window,
		Effective: item.window.EffectiveWindow(),
	}
}

func (o *Orchestrator) notify(itemID string, state DetectionState) {
	if o.onStateChange != nil {
		o.onStateChange(itemID, state)
	}
}

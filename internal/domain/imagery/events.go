package imagery

import "time"

// ImageVisibleEvent is raised when a lazy image enters the look-ahead zone
type ImageVisibleEvent struct {
	Source string
	At     time.Time
}

func (e ImageVisibleEvent) EventName() string     { return "image.visible" }
func (e ImageVisibleEvent) OccurredAt() time.Time { return e.At }

// ImageLoadedEvent is raised on the first successful native load
type ImageLoadedEvent struct {
	Source        string
	DisplaySource string
	At            time.Time
}

func (e ImageLoadedEvent) EventName() string     { return "image.loaded" }
func (e ImageLoadedEvent) OccurredAt() time.Time { return e.At }

// ImageUpgradedEvent is raised when a compressed blob replaces the displayed source
type ImageUpgradedEvent struct {
	Source  string
	BlobRef string
	At      time.Time
}

func (e ImageUpgradedEvent) EventName() string     { return "image.upgraded" }
func (e ImageUpgradedEvent) OccurredAt() time.Time { return e.At }

// ImageFallbackEvent is raised when a native error forces the original source
type ImageFallbackEvent struct {
	Source       string
	FailedSource string
	At           time.Time
}

func (e ImageFallbackEvent) EventName() string     { return "image.fallback" }
func (e ImageFallbackEvent) OccurredAt() time.Time { return e.At }

// ImageErroredEvent is raised when the original source fails as well
type ImageErroredEvent struct {
	Source string
	At     time.Time
}

func (e ImageErroredEvent) EventName() string     { return "image.errored" }
func (e ImageErroredEvent) OccurredAt() time.Time { return e.At }

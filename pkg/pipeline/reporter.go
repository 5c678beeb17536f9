package pipeline

import "time"

// Progress phase labels, fired through Reporter.OnProgress
const (
	PhaseCollecting  = "Collecting images"
	PhaseDownloading = "Downloading images"
	PhaseEmbedding   = "Embedding metadata"
	PhaseArchiving   = "Creating zip file"
)

// Reporter receives pipeline progress events. The UI layer that renders
// them is an external collaborator; the pipeline only guarantees when
// the events fire: per collected item, per downloaded item, per embed
// step, on rate-limit cooldowns, and OnFinish exactly once at every
// terminal state.
type Reporter interface {
	OnProgress(current, total int, phase string)
	OnStatus(message string)
	OnCooldown(wait time.Duration)
	OnFinish()
}

// NopReporter discards all events
type NopReporter struct{}

func (NopReporter) OnProgress(current, total int, phase string) {}
func (NopReporter) OnStatus(message string)                     {}
func (NopReporter) OnCooldown(wait time.Duration)               {}
func (NopReporter) OnFinish()                                   {}

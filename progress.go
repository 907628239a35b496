package glbrange

// ProgressEvent represents a progress update during a Load.
type ProgressEvent struct {
	// Stage identifies the current phase of the load.
	Stage ProgressStage

	// URL is the asset URL being loaded.
	URL string

	// Err is the cause of a fallback. It is only set for StageFallback.
	Err error
}

// ProgressStage identifies the current phase of a load.
type ProgressStage uint8

// Progress stages of a Load.
const (
	// StageProbing indicates the magic and range support are being checked.
	StageProbing ProgressStage = iota

	// StageLoadingContainer indicates the chunk table is being walked.
	StageLoadingContainer

	// StageParsing indicates the metadata parser is running.
	StageParsing

	// StageFallback indicates the load was handed to the full loader.
	StageFallback

	// StageDone indicates the asset was loaded through range requests.
	StageDone
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageProbing:
		return "probing"
	case StageLoadingContainer:
		return "loading container"
	case StageParsing:
		return "parsing"
	case StageFallback:
		return "fallback"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during loads.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)

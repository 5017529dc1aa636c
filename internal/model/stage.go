package model

// Stage is the closed enumeration of transcription job stages reported by
// the engine. The original wire format carries these as free strings; they
// are modeled as a type here so that the progress mapping is total and
// unrecognized values are detectable instead of silently ignored.
type Stage string

const (
	StageStarted      Stage = "started"
	StageSplitting    Stage = "splitting"
	StageLoadingNemo  Stage = "loading-nemo"
	StageTranscribing Stage = "transcribing"
	StageAligning     Stage = "aligning"
	StageFinished     Stage = "finished"
)

// stagePercent maps each stage to a bounded, monotonically increasing
// progress indicator.
var stagePercent = map[Stage]int{
	StageStarted:      0,
	StageSplitting:    20,
	StageLoadingNemo:  40,
	StageTranscribing: 60,
	StageAligning:     80,
	StageFinished:     100,
}

// Percent returns the progress indicator for the stage. ok is false for
// strings outside the enumeration; callers must leave their current
// indicator unchanged in that case.
func (s Stage) Percent() (percent int, ok bool) {
	percent, ok = stagePercent[s]
	return percent, ok
}

// Known reports whether s is a member of the stage enumeration.
func (s Stage) Known() bool {
	_, ok := stagePercent[s]
	return ok
}

// Terminal reports whether the job has completed successfully. Error states
// are signaled out of band (transfer status), not as a stage.
func (s Stage) Terminal() bool {
	return s == StageFinished
}

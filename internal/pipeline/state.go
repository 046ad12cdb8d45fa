package pipeline

// State is a pipeline lifecycle phase.
type State string

const (
	StateIdle          State = "idle"
	StateOpening       State = "opening"
	StateBuildingField State = "building_field"
	StateRendering     State = "rendering"
	StateFinalFrame    State = "final_frame"
	StateFinalizing    State = "finalizing"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// FieldMode names the intensity field representation used for a run.
type FieldMode string

const (
	FieldDense     FieldMode = "dense"
	FieldStreaming FieldMode = "streaming"
)

// HoldSource reports where the closing frame's background came from.
type HoldSource string

const (
	HoldNone   HoldSource = ""
	HoldSeek   HoldSource = "seek"
	HoldRescan HoldSource = "rescan"
	HoldBlank  HoldSource = "blank"
)

// Progress is reported after each batch of written frames.
type Progress struct {
	Written int
	Total   int
	Percent float64
}

// Result summarizes a completed run.
type Result struct {
	FramesWritten int        `json:"frames_written"`
	FrameCount    int        `json:"frame_count"`
	Truncated     bool       `json:"truncated"`
	HoldFrame     bool       `json:"hold_frame"`
	HoldSource    HoldSource `json:"hold_source,omitempty"`
	FieldMode     FieldMode  `json:"field_mode"`
	Info          VideoInfo  `json:"info"`
}

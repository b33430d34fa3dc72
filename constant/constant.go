package constant

type SessionState string

const (
	SessionStateIdle       SessionState = "IDLE"
	SessionStateRecording  SessionState = "RECORDING"
	SessionStateProcessing SessionState = "PROCESSING"
	SessionStateFailed     SessionState = "FAILED"
	SessionStateCompleted  SessionState = "COMPLETED"
)

func (s SessionState) String() string {
	return string(s)
}

type Backend string

const (
	BackendLocal Backend = "local"
	BackendAPI   Backend = "api"
)

func (b Backend) String() string {
	return string(b)
}

type TagStyle string

const (
	TagStyleWikilink TagStyle = "wikilink"
	TagStyleHashtag  TagStyle = "hashtag"
)

type PipelineStage string

const (
	PipelineStageCapture    PipelineStage = "capture"
	PipelineStageTranscribe PipelineStage = "transcribe"
	PipelineStageSummarize  PipelineStage = "summarize"
	PipelineStageWrite      PipelineStage = "write"
	PipelineStageArchive    PipelineStage = "archive"
	PipelineStageNotify     PipelineStage = "notify"
)

package agent

// ErrorCode is a string type used for structured error reporting from the
// state machine and the orchestrator.
type ErrorCode string

const (
	// ErrCodeExtractionFailure means the page could not be read; minimal content was used.
	ErrCodeExtractionFailure ErrorCode = "EXTRACTION_FAILURE"
	// ErrCodeInferenceFailure means the model could not be reached or answered badly.
	ErrCodeInferenceFailure ErrorCode = "INFERENCE_FAILURE"
	// ErrCodeTranscriptionFailure means a recording produced no usable utterance.
	ErrCodeTranscriptionFailure ErrorCode = "TRANSCRIPTION_FAILURE"

	ErrCodeNavigationFailure ErrorCode = "NAVIGATION_FAILURE"
	ErrCodeJobNotFound       ErrorCode = "JOB_NOT_FOUND"
	ErrCodeElementStale      ErrorCode = "ELEMENT_STALE"
	ErrCodeClickFailed       ErrorCode = "CLICK_FAILED"
	ErrCodeUnknownAction     ErrorCode = "UNKNOWN_ACTION_TYPE"

	// ErrCodeApplyControlMissing accompanies a successful apply that found no control to click.
	ErrCodeApplyControlMissing ErrorCode = "APPLY_CONTROL_MISSING"
)

package constants

// SubmissionState is the canonical state of one image submission.
type SubmissionState string

// Stable values (store these exact strings in the journal).
const (
	StateReceived         SubmissionState = "RECEIVED"
	StateExtracting       SubmissionState = "EXTRACTING"
	StateSubmitted        SubmissionState = "SUBMITTED"         // pending in the content store
	StateExtractionFailed SubmissionState = "EXTRACTION_FAILED" // terminal, user must resend
	StateSubmitFailed     SubmissionState = "SUBMIT_FAILED"     // terminal, store refused or was unreachable
	StateApproved         SubmissionState = "APPROVED"          // terminal
	StateRejected         SubmissionState = "REJECTED"          // terminal
)

// Terminal reports whether no further transition is allowed from s.
func (s SubmissionState) Terminal() bool {
	switch s {
	case StateExtractionFailed, StateSubmitFailed, StateApproved, StateRejected:
		return true
	}
	return false
}

// DecisionState maps a moderator decision to its terminal state.
func DecisionState(approved bool) SubmissionState {
	if approved {
		return StateApproved
	}
	return StateRejected
}

// DecisionOutcome is what happened when a decision reached the content store.
type DecisionOutcome string

const (
	OutcomeApplied        DecisionOutcome = "APPLIED"
	OutcomeAlreadyDecided DecisionOutcome = "ALREADY_DECIDED"
	OutcomeFailed         DecisionOutcome = "FAILED"
)

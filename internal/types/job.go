package types

// Shared job lifecycle for book requests and AI stories.
//
// pending and processing are non-terminal; completed and failed are final.
// A terminal row is never written again (repos guard every late update).
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Failure reasons recorded on the job's error column.
const (
	FailReasonResolution  = "resolution_failed"
	FailReasonTransfer    = "transfer_failed"
	FailReasonGeneration  = "generation_failed"
	FailReasonRender      = "render_failed"
	FailReasonPersistence = "persistence_failed"
	FailReasonStale       = "stale_restart"
)

func JobStatusTerminal(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

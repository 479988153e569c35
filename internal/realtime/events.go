package realtime

type SSEEvent string

const (
	SSEEventJobCreated  SSEEvent = "JobCreated"
	SSEEventJobProgress SSEEvent = "JobProgress"
	SSEEventJobFailed   SSEEvent = "JobFailed"
	SSEEventJobDone     SSEEvent = "JobDone"

	SSEEventChatMessageCreated SSEEvent = "ChatMessageCreated"
	SSEEventDraftCreated       SSEEvent = "DraftCreated"
	SSEEventDraftApproved      SSEEvent = "DraftApproved"
	SSEEventDraftRejected      SSEEvent = "DraftRejected"
)

// MentorChannel is the shared channel every mentor dashboard subscribes to.
// Student-facing clients subscribe to the student UUID string instead.
const MentorChannel = "mentors"

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

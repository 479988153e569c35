package realtime

import (
	"github.com/google/uuid"

	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

// SSEClient is one connected event stream. StudentID is uuid.Nil for
// mentor dashboard connections.
type SSEClient struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	Channels  map[string]bool
	Outbound  chan SSEMessage
	done      chan struct{}
	Logger    *logger.Logger
}

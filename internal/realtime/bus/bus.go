package bus

import (
	"context"

	"github.com/wrenfield/mentorloop-backend/internal/realtime"
)

// Bus fans SSE messages out across processes, so a draft generated on a
// worker reaches clients connected to any API instance.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

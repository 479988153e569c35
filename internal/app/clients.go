package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/wrenfield/mentorloop-backend/internal/llm"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
	"github.com/wrenfield/mentorloop-backend/internal/realtime/bus"
)

type Clients struct {
	// SSEBus is nil when REDIS_ADDR is unset (single-process mode).
	SSEBus bus.Bus
	LLM    llm.Provider
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	var sseBus bus.Bus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		sseBus = b
	}

	provider, err := llm.FromEnv(log)
	if err != nil {
		if sseBus != nil {
			_ = sseBus.Close()
		}
		return Clients{}, fmt.Errorf("init llm provider: %w", err)
	}

	return Clients{
		SSEBus: sseBus,
		LLM:    provider,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
}

package app

import (
	"github.com/wrenfield/mentorloop-backend/internal/platform/envutil"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	LogMode     string
	Environment string
	Version     string

	// RunServer/RunWorker select which halves of the binary are active.
	// Both default true so a single-process deployment just works.
	RunServer bool
	RunWorker bool
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		RunServer:   envutil.Bool("RUN_SERVER", true),
		RunWorker:   envutil.Bool("RUN_WORKER", true),
	}
	log.Info("Config loaded",
		"port", cfg.Port,
		"env", cfg.Environment,
		"run_server", cfg.RunServer,
		"run_worker", cfg.RunWorker,
	)
	return cfg
}

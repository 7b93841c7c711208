package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"chatrelay/internal/app"
	"chatrelay/pkg/banner"
	"chatrelay/pkg/config"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version = "dev"
	commit  = "none"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Flags explicitly set win over env/config.
	if setFlags["addr"] {
		if host, port, ok := config.SplitAddr(addrVal); ok {
			cfg.Server.Address = host
			cfg.Server.Port = port
		} else {
			log.Fatalf("invalid -addr %q, expected host:port", addrVal)
		}
	}
	if setFlags["db"] {
		cfg.Storage.DBPath = dbVal
		cfg.Storage.Backend = "pebble"
	}

	logger.InitWithLevel(cfg.Logging.Level)

	srcs := []string{}
	if len(setFlags) > 0 {
		srcs = append(srcs, "flags")
	}
	if hasEnvOverrides() {
		srcs = append(srcs, "env")
	}
	if _, err := os.Stat(cfgPath); err == nil {
		srcs = append(srcs, "config")
	}

	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	banner.Print(cfg.Addr(), cfg.Storage.Backend, cfg.Storage.DBPath, strings.Join(srcs, ", "), verStr)

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func hasEnvOverrides() bool {
	for _, k := range []string{
		"CHATRELAY_ADDR",
		"CHATRELAY_STORAGE_BACKEND",
		"CHATRELAY_DB_PATH",
		"CHATRELAY_LOG_LEVEL",
		"CHATRELAY_RESPONDER_SEED",
	} {
		if os.Getenv(k) != "" {
			return true
		}
	}
	return false
}

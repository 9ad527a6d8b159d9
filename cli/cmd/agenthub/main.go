package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/go-logr/zapr"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	hubcli "github.com/agenthub-dev/agenthub/go/cli/internal/cli/hub"
)

func main() {
	zapLog, err := buildLogger()
	if err != nil {
		color.Red("failed to set up logging: %v", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := zapr.NewLogger(zapLog)

	cmd := hubcli.NewHubCmd(log)
	if err := cmd.Execute(); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

func buildLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if level := os.Getenv("AGENTHUB_LOG_LEVEL"); level != "" {
		var l zap.AtomicLevel
		if err := l.UnmarshalText([]byte(level)); err == nil {
			cfg.Level = l
		}
	}
	return cfg.Build()
}

// Package main implements the OpenLRO simulated remote daemon.
// It serves the remote operation protocol over HTTP, so runners in other
// processes can submit, poll and fetch simulated operations.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/openlro/openlro/pkg/telemetry"
	"github.com/openlro/openlro/pkg/transports/httpremote"
	"github.com/openlro/openlro/pkg/transports/sim"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		listenAddr  = flag.String("listen", ":8080", "address to serve the operation API on")
		duration    = flag.Duration("duration", sim.DefaultDuration, "how long operations report RUNNING before finishing")
		fail        = flag.Bool("fail", false, "resolve every operation as FAILED")
		reject      = flag.Bool("reject", false, "reject every submission")
		script      = flag.String("script", "", "Starlark scenario file driving the status sequence")
		logLevel    = flag.String("log-level", "", "log level (trace, debug, info, warn, error)")
		logFormat   = flag.String("log-format", "console", "log format (console, json)")
		showVersion = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("simremoted %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		return
	}

	level := *logLevel
	if level == "" {
		level = strings.ToLower(os.Getenv("LOG_LEVEL"))
	}
	if level == "" {
		level = "info"
	}

	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:      level,
		Format:     *logFormat,
		Output:     "stderr",
		TimeFormat: "rfc3339",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	cfg := sim.Config{
		Duration:          *duration,
		Fail:              *fail,
		RejectSubmissions: *reject,
	}
	if *script != "" {
		sc, err := sim.LoadScript(*script)
		if err != nil {
			logger.Fatalf("Failed to load scenario script: %v", err)
		}
		cfg.Script = sc
	}

	logger.WithFields(map[string]interface{}{
		"addr":     *listenAddr,
		"duration": duration.String(),
		"fail":     *fail,
		"script":   *script,
		"version":  Version,
	}).Info("Starting simulated remote")

	remote := sim.New(cfg)
	server := httpremote.NewServer(*listenAddr, remote, logger.NewComponentLogger("httpremote"))
	if err := server.Run(); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}

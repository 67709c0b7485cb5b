package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nutsandbolts/modcore/pkg/metrics"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "modcore",
		Usage:   "moderation core: spam detection, action dispatch, and fuzzy tag lookup",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"MODCORE_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format: 'json' or 'text'",
			Value:   "text",
			EnvVars: []string{"MODCORE_LOG_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs (disabled if empty)",
			EnvVars: []string{"MODCORE_METRICS_LISTEN"},
		},
	}

	app.Before = func(cctx *cli.Context) error {
		logger, err := configLogger(cctx.String("log-level"), cctx.String("log-format"))
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		if listen := cctx.String("metrics-listen"); listen != "" {
			go func() {
				if err := metrics.RunServer(cctx.Context, listen); err != nil {
					slog.Error("failed to start metrics endpoint", "error", err)
					panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
				}
			}()
		}
		return nil
	}

	app.Commands = []*cli.Command{
		replayCmd,
		resolveCmd,
		similarCmd,
		watchCmd,
	}

	return app.Run(args)
}

func configLogger(level, format string) (*slog.Logger, error) {
	logLvl := new(slog.LevelVar)
	if err := logLvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: logLvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
}

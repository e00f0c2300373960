package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Mikhail1201/FAYES/internal/app"
	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/service/process"
)

const (
	flagStreamURL  = "stream-url"
	flagBackendURL = "backend-url"
	flagDelay      = "delay"
	flagDisplay    = "display"
	flagBackend    = "detector"
)

func main() {
	scannerApp := &cli.App{
		Name:      "scanner",
		Usage:     "detect fruit on a camera stream and report it to the inventory",
		ArgsUsage: "<token>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagStreamURL,
				Usage: "MJPEG stream `URL` of the camera",
			},
			&cli.StringFlag{
				Name:  flagBackendURL,
				Usage: "inventory endpoint `URL`",
			},
			&cli.DurationFlag{
				Name:  flagDelay,
				Usage: "minimum time between two inferences",
			},
			&cli.BoolFlag{
				Name:  flagDisplay,
				Usage: "show frames in a window; press q or ESC to stop",
			},
			&cli.StringFlag{
				Name:  flagBackend,
				Usage: "detector backend: onnx or worker",
			},
		},
		Action: run,
	}

	if err := scannerApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if c.Args().Len() > 0 {
		cfg.BackendToken = c.Args().First()
	}
	if c.IsSet(flagStreamURL) {
		cfg.StreamURL = c.String(flagStreamURL)
	}
	if c.IsSet(flagBackendURL) {
		cfg.BackendURL = c.String(flagBackendURL)
	}
	if c.IsSet(flagDelay) {
		cfg.SampleDelay = c.Duration(flagDelay)
	}
	if c.IsSet(flagDisplay) {
		cfg.Display = c.Bool(flagDisplay)
	}
	if c.IsSet(flagBackend) {
		cfg.DetectorBackend = c.String(flagBackend)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, err := app.NewScanner(ctx, cfg, logger)
	if errors.Is(err, app.ErrMissingToken) {
		return cli.Exit("usage: scanner <token> (or set BACKEND_TOKEN)", 2)
	}
	if err != nil {
		logger.Error("Failed to start scanner: %v", err)
		return cli.Exit(err.Error(), 1)
	}
	defer scanner.Close()

	if err := scanner.Run(ctx); err != nil {
		logger.Error("Scanner stopped: %v", err)
		return cli.Exit(err.Error(), 1)
	}
	logger.Info("Scanner run %s finished", scanner.RunID())
	return nil
}

// newLogger leaves the log files to the controller when it runs the scanner; the
// controller reads the level prefixes back from stdout.
func newLogger(cfg *config.Config) *logger.Logger {
	if os.Getenv(process.SupervisedEnv) != "" {
		return logger.NewWithWriter(os.Stdout)
	}
	return logger.NewLogger(cfg)
}

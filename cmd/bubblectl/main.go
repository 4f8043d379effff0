package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"BubbleScope/internal/di"
	domsvc "BubbleScope/internal/domain/service"
	"BubbleScope/pkg/config"
	xhttp "BubbleScope/pkg/http"
	applogger "BubbleScope/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type globalOpts struct {
	configPath string
	remote     string
	logLevel   string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	g := &globalOpts{}
	root := &cobra.Command{
		Use:          "bubblectl",
		Short:        "Fit LPPL bubble models to price series",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file; built-in defaults when empty")
	pf.StringVar(&g.remote, "remote", "", "BubbleScope server URL; runs locally when empty")
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.DurationVar(&g.timeout, "timeout", 10*time.Minute, "remote request timeout")

	root.AddCommand(newFitCmd(g), newValidateCmd(g), newStrategiesCmd(), newEpisodesCmd())
	return root
}

// load reads the config and builds a stderr logger.
func (g *globalOpts) load() (*config.Config, *applogger.Logger, error) {
	cfg, err := config.LoadWithEnv(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	lc := cfg.Logging
	lc.Output = "stderr"
	if g.logLevel != "" {
		lc.Level = g.logLevel
	}
	l, err := applogger.New(&lc)
	if err != nil {
		return nil, nil, err
	}
	return cfg, l, nil
}

func (g *globalOpts) selector(cfg *config.Config, l *applogger.Logger) domsvc.Selector {
	return di.ProvideSelector(cfg, di.ProvideThresholds(cfg), l)
}

func (g *globalOpts) validator(cfg *config.Config, l *applogger.Logger) domsvc.EpisodeValidator {
	return di.ProvideValidator(g.selector(cfg, l), cfg, l)
}

func (g *globalOpts) client() *xhttp.Client {
	return xhttp.NewClient(g.remote, xhttp.WithTimeout(g.timeout))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

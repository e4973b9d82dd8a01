package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"freight-dispatch-service/internal/app"
	"freight-dispatch-service/internal/config"
	"freight-dispatch-service/internal/platform/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "dispatchctl",
		Short:         "Run the freight dispatch engine offline",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default $DISPATCH_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newRoutesCmd(opts),
		newAssignCmd(opts),
		newHOSCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := cfg.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	// stdout carries the JSON result
	return cfg, logger.NewWithWriter(os.Stderr, "dispatchctl", level), nil
}

// withApp builds the engine, runs fn and closes the stores.
func (o *rootOptions) withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, log, err := o.load()
	if err != nil {
		return err
	}
	a, err := app.New(log.WithContext(ctx), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// readRequest decodes a JSON request from path, or stdin for "-".
func readRequest(path string, dst any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

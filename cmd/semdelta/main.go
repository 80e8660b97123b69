package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	diffcmd "github.com/walteh/semdelta/cmd/semdelta/diff"
	"github.com/walteh/semdelta/cmd/semdelta/replay"
	"github.com/walteh/semdelta/cmd/semdelta/tokens"
	"github.com/walteh/semdelta/cmd/semdelta/watch"
	"github.com/walteh/semdelta/pkg/config"
	logdebug "github.com/walteh/semdelta/pkg/debug"
	"github.com/walteh/semdelta/pkg/tracing"
)

func main() {
	if err := run(context.Background(), afero.NewOsFs(), os.Args[1:]); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	debug      bool
	trace      bool
	provider   *tracing.Provider
}

func newRootCommand(fs afero.Fs) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "semdelta",
		Short:         "compute incremental semantic token edits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to an HCL or YAML config file")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.trace, "trace", false, "write delta computation spans to stderr")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if opts.configPath != "" {
			loaded, err := config.Load(fs, opts.configPath)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}
			cfg = loaded
		}

		level := cfg.LogLevel()
		if opts.debug {
			cfg.Log.Level = "debug"
			level = cfg.LogLevel()
		}

		if opts.trace {
			cfg.Trace.Enabled = true
		}

		provider, err := tracing.NewProvider(cfg.TraceConfig(), cmd.ErrOrStderr())
		if err != nil {
			return errors.Errorf("setting up tracing: %w", err)
		}
		opts.provider = provider

		logger := logdebug.NewLogger(cmd.ErrOrStderr(), level, opts.debug)
		ctx := logger.WithContext(cmd.Context())
		ctx = provider.WithContext(ctx)
		cmd.SetContext(cfg.WithContext(ctx))

		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if opts.provider == nil {
			return nil
		}
		return opts.provider.Shutdown(cmd.Context())
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)
	rootCmd.AddCommand(diffcmd.NewDiffCommand(fs))
	rootCmd.AddCommand(tokens.NewTokensCommand(fs))
	rootCmd.AddCommand(replay.NewReplayCommand(fs))
	rootCmd.AddCommand(watch.NewWatchCommand(fs))

	return rootCmd
}

func run(ctx context.Context, fs afero.Fs, args []string) error {
	rootCmd := newRootCommand(fs)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/wizzomafizzo/git-bump/internal/cli"
	"github.com/wizzomafizzo/git-bump/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// createRootCommand creates the root command. git-bump has no subcommands;
// the version argument and the two listing flags are mutually exclusive.
func createRootCommand() *cobra.Command {
	var listFiles bool
	var printSampleConfig bool

	cmd := &cobra.Command{
		Use:           "git-bump <version>",
		Short:         "Consistently bump your version numbers with Lua scripts",
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (listFiles || printSampleConfig) && len(args) > 0 {
				return errors.New("a version argument cannot be combined with --list-files or --print-sample-config")
			}

			if printSampleConfig {
				_, err := fmt.Fprint(cmd.OutOrStdout(), cli.SampleConfig())
				return err
			}
			if !listFiles && len(args) == 0 {
				return errors.New("requires a version argument, --list-files or --print-sample-config")
			}

			fs := afero.NewOsFs()
			ctx, err := logging.New(cmd.Context(), fs, logging.Config{Level: zerolog.InfoLevel})
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}

			app := cli.NewApp(fs)
			if listFiles {
				return runListFiles(ctx, cmd, app)
			}
			return runBump(ctx, app, args[0])
		},
	}

	cmd.Flags().BoolVar(&listFiles, "list-files", false, "List files that would be updated")
	cmd.Flags().BoolVar(&printSampleConfig, "print-sample-config", false, "Print sample config file")
	cmd.MarkFlagsMutuallyExclusive("list-files", "print-sample-config")

	return cmd
}

func runBump(ctx context.Context, app *cli.App, version string) error {
	_, err := app.Bump(ctx, version)
	return err
}

func runListFiles(ctx context.Context, cmd *cobra.Command, app *cli.App) error {
	paths, err := app.ListFiles(ctx)
	if err != nil {
		return err
	}

	for _, path := range paths {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), path); err != nil {
			return fmt.Errorf("failed to print file list: %w", err)
		}
	}
	return nil
}

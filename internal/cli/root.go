// Package cli holds the discordin command line.
package cli

import (
	"os"

	"github.com/isdelr/discordin/internal/config"
	"github.com/isdelr/discordin/internal/logger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	configFiles []string
	cfg         *config.Config
}

// NewRootCmd builds the discordin command tree. Without a subcommand the
// web server is started.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "discordin",
		Short:         "DiscordIn, the social network for students",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFiles...)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			logger.Init(cfg.AppConfig.LogLevel, !cfg.IsProduction())
			if cfg.UsesDevSecret() {
				log.Warn().Msg("SESSION_SECRET is not set, signing sessions with the development secret")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.cfg)
		},
	}
	root.PersistentFlags().StringSliceVar(&opts.configFiles, "config", nil, "configuration file(s), later files override earlier ones")

	root.AddCommand(newServeCmd(opts), newResetDBCmd(opts))
	return root
}

// Execute runs the command line and exits with a non-zero status on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

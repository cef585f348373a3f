package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"weblogd/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "weblogd",
		Short:         "weblogd serves the MetaWeblog and Blogger APIs for a blog platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newInfoCmd(cfg, &jsonOutput),
		newUserCmd(cfg, &jsonOutput),
		newBlogCmd(cfg, &jsonOutput),
		newBanCmd(cfg, &jsonOutput),
		newWorkflowCmd(cfg, &jsonOutput),
		newEventsCmd(cfg, &jsonOutput),
		newPostCmd(cfg, &jsonOutput),
		newMediaCmd(cfg, &jsonOutput),
		newAccountCmd(cfg, &jsonOutput),
	)

	return cmd
}

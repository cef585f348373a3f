package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"weblogd/internal/config"
	"weblogd/internal/format"
	"weblogd/internal/models"
	"weblogd/internal/store"
)

func newBanCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ban",
		Short: "Close parts of the site to addresses or networks",
	}
	cmd.AddCommand(newBanAddCmd(cfg, jsonOutput))
	cmd.AddCommand(newBanListCmd(cfg, jsonOutput))
	cmd.AddCommand(newBanRemoveCmd(cfg))
	return cmd
}

func newBanAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		category string
		reason   string
	)

	cmd := &cobra.Command{
		Use:   "add <address-or-cidr>",
		Short: "Add a ban rule",
		Args:  requireExactlyArgs(1, "address or CIDR is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := models.ParseBanCategory(category)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				rule, err := st.AddBan(cmd.Context(), args[0], parsed, reason)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(rule)
				}
				return writePlain("banned %s (%s)\n", rule.CIDR, rule.Category)
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", string(models.BanLogin), "complete, login or all_non_complete")
	cmd.Flags().StringVar(&reason, "reason", "", "note kept with the rule")
	return cmd
}

func newBanListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ban rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				rules, err := st.ListBans(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"count": len(rules), "rules": rules})
				}
				if len(rules) == 0 {
					return writePlain("no ban rules\n")
				}
				table := &format.Table{Header: []string{"ID", "CIDR", "CATEGORY", "CREATED", "REASON"}}
				for _, rule := range rules {
					table.Append(rule.ID, rule.CIDR, rule.Category, formatTime(rule.CreatedAt), rule.Reason)
				}
				return writeTable(table)
			})
		},
	}
}

func newBanRemoveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a ban rule",
		Args:    requireExactlyArgs(1, "rule id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0], "rule")
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				ok, err := st.RemoveBan(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("ban rule %d not found", id)
				}
				return writePlain("removed ban rule %d\n", id)
			})
		},
	}
}

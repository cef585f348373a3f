package main

import (
	"github.com/spf13/cobra"

	"weblogd/internal/config"
	"weblogd/internal/format"
	"weblogd/internal/store"
)

func newEventsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the newest audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				events, err := st.ListEvents(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(events)
				}
				table := &format.Table{Header: []string{"TIME", "TYPE", "SOURCE", "CODE", "IP", "DESCRIPTION"}}
				for _, event := range events {
					table.Append(formatTime(event.CreatedAt), event.Type, event.Source, event.Code, event.IPAddress, event.Description)
				}
				return writeTable(table)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "number of events to show")
	return cmd
}

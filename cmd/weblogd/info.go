package main

import (
	"sort"

	"github.com/spf13/cobra"

	"weblogd/internal/api"
	"weblogd/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server, database and content statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, "", func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("site_name: %s\n", resp.SiteName)
				_ = writePlain("public_url: %s\n", resp.PublicURL)
				_ = writePlain("db_path: %s\n", resp.DBPath)
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("users: %d\n", resp.TotalUsers)
				_ = writePlain("attachments: %d (%d pending)\n", resp.TotalAttachments, resp.TemporaryAttachments)

				kinds := make([]string, 0, len(resp.DocumentCounts))
				for kind := range resp.DocumentCounts {
					kinds = append(kinds, kind)
				}
				sort.Strings(kinds)
				_ = writePlain("documents:\n")
				for _, kind := range kinds {
					_ = writePlain("  %s: %d\n", kind, resp.DocumentCounts[kind])
				}
				return writePlain("methods: %d\n", len(resp.Methods))
			})
		},
	}
}

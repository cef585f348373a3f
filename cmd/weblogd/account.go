package main

import (
	"github.com/spf13/cobra"

	"weblogd/internal/api"
	"weblogd/internal/config"
	"weblogd/internal/format"
)

func newAccountCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account and the blogs it owns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, username, func(client *api.Client) error {
				info, err := client.GetUserInfo(cmd.Context())
				if err != nil {
					return err
				}
				blogs, err := client.GetUsersBlogs(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"user": info, "blogs": blogs})
				}

				_ = writePlain("user: %s (%s)\n", info.Nickname, info.UserID)
				if info.Email != "" {
					_ = writePlain("email: %s\n", info.Email)
				}
				if len(blogs) == 0 {
					return writePlain("no blogs\n")
				}
				table := &format.Table{Header: []string{"ID", "NAME", "URL"}}
				for _, blog := range blogs {
					table.Append(blog.BlogID, blog.BlogName, blog.URL)
				}
				return writeTable(table)
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "account to sign in as (default: WEBLOGD_USERNAME)")
	return cmd
}

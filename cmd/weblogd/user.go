package main

import (
	"fmt"

	"github.com/spf13/cobra"

	internalauth "weblogd/internal/auth"
	"weblogd/internal/config"
	"weblogd/internal/format"
	"weblogd/internal/models"
	"weblogd/internal/store"
)

func newUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the accounts that sign in through the blogging API",
	}
	cmd.AddCommand(newUserAddCmd(cfg, jsonOutput))
	cmd.AddCommand(newUserListCmd(cfg, jsonOutput))
	cmd.AddCommand(newUserFlagCmd(cfg, jsonOutput, "disable", "Disable one user", func(st *store.Store, cmd *cobra.Command, username string) (*models.User, error) {
		return st.SetUserDisabled(cmd.Context(), username, true)
	}))
	cmd.AddCommand(newUserFlagCmd(cfg, jsonOutput, "enable", "Enable one user", func(st *store.Store, cmd *cobra.Command, username string) (*models.User, error) {
		return st.SetUserDisabled(cmd.Context(), username, false)
	}))
	cmd.AddCommand(newUserFlagCmd(cfg, jsonOutput, "promote", "Make one user a global administrator", func(st *store.Store, cmd *cobra.Command, username string) (*models.User, error) {
		return st.SetGlobalAdmin(cmd.Context(), username, true)
	}))
	cmd.AddCommand(newUserFlagCmd(cfg, jsonOutput, "demote", "Revoke global administrator rights", func(st *store.Store, cmd *cobra.Command, username string) (*models.User, error) {
		return st.SetGlobalAdmin(cmd.Context(), username, false)
	}))
	cmd.AddCommand(newUserPasswdCmd(cfg))
	cmd.AddCommand(newUserDeleteCmd(cfg, jsonOutput))
	return cmd
}

func newUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		passwordStdin bool
		admin         bool
		profile       store.UserProfile
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create one user",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}

			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			password, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			hash, err := internalauth.HashPassword(password)
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				created, err := st.CreateUser(cmd.Context(), username, hash, profile, admin)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(created)
				}
				return writePlain("created user %s (%d)\n", created.Username, created.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	cmd.Flags().BoolVar(&admin, "admin", false, "make the user a global administrator")
	cmd.Flags().StringVar(&profile.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&profile.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&profile.Nickname, "nickname", "", "nickname")
	cmd.Flags().StringVar(&profile.Email, "email", "", "email address")
	cmd.Flags().StringVar(&profile.URL, "url", "", "home page")
	return cmd
}

func newUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				users, err := st.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"count": len(users), "users": users})
				}
				if len(users) == 0 {
					return writePlain("no users configured\n")
				}
				table := &format.Table{Header: []string{"ID", "USERNAME", "ADMIN", "STATUS", "EMAIL"}}
				for _, user := range users {
					table.Append(user.ID, user.Username, user.IsGlobalAdmin, enabledLabel(user.Disabled), user.Email)
				}
				return writeTable(table)
			})
		},
	}
}

type userUpdate func(st *store.Store, cmd *cobra.Command, username string) (*models.User, error)

func newUserFlagCmd(cfg *config.Config, jsonOutput *bool, name, short string, update userUpdate) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <username>",
		Short: short,
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				updated, err := update(st, cmd, username)
				if err != nil {
					return err
				}
				if updated == nil {
					return fmt.Errorf("user %s not found", username)
				}
				if *jsonOutput {
					return writeJSON(updated)
				}
				return writePlain("%s: admin=%t status=%s\n", updated.Username, updated.IsGlobalAdmin, enabledLabel(updated.Disabled))
			})
		},
	}
}

func newUserPasswdCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <username>",
		Short: "Replace one user's password, read from stdin",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			password, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			hash, err := internalauth.HashPassword(password)
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				ok, err := st.SetPassword(cmd.Context(), username, hash)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("user %s not found", username)
				}
				return writePlain("password updated for %s\n", username)
			})
		},
	}
}

func newUserDeleteCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <username>",
		Aliases: []string{"rm"},
		Short:   "Delete one user",
		Args:    requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				ok, err := st.DeleteUser(cmd.Context(), username)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("user %s not found", username)
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"username": username, "deleted": true})
				}
				return writePlain("deleted user %s\n", username)
			})
		},
	}
}

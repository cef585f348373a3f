package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	internalauth "weblogd/internal/auth"
	"weblogd/internal/config"
	"weblogd/internal/format"
	"weblogd/internal/models"
	"weblogd/internal/store"
)

func newBlogCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blog",
		Short: "Create blogs and manage who may post to them",
	}
	cmd.AddCommand(newBlogCreateCmd(cfg, jsonOutput))
	cmd.AddCommand(newBlogListCmd(cfg, jsonOutput))
	cmd.AddCommand(newBlogGrantCmd(cfg, jsonOutput, true))
	cmd.AddCommand(newBlogGrantCmd(cfg, jsonOutput, false))
	cmd.AddCommand(newBlogGrantsCmd(cfg, jsonOutput))
	return cmd
}

func newBlogCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		owner string
		spec  store.BlogSpec
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a blog",
		Args:  requireExactlyArgs(1, "blog name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Name = args[0]
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				if owner != "" {
					user, err := lookupUser(cmd.Context(), st, owner)
					if err != nil {
						return err
					}
					spec.OwnerID = user.ID
				}
				blog, err := st.CreateBlog(cmd.Context(), spec)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(blog)
				}
				return writePlain("created blog %d at %s (%s)\n", blog.ID, blog.AliasPath, blog.Culture)
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "username of the blog owner")
	cmd.Flags().StringVar(&spec.Alias, "alias", "", "URL alias (default: derived from the name)")
	cmd.Flags().StringVar(&spec.Culture, "culture", "", "content culture (default: en-US)")
	cmd.Flags().Int64Var(&spec.ParentID, "parent", 0, "id of the parent document")
	cmd.Flags().StringVar(&spec.TagGroup, "tag-group", "", "tag group name (default: the alias)")
	cmd.Flags().BoolVar(&spec.InheritTags, "inherit-tags", false, "use the tag group of the parent")
	return cmd
}

func newBlogListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List blogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				var ownerID int64
				if owner != "" {
					user, err := lookupUser(cmd.Context(), st, owner)
					if err != nil {
						return err
					}
					ownerID = user.ID
				}
				blogs, err := st.ListBlogs(cmd.Context(), ownerID)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"count": len(blogs), "blogs": blogs})
				}
				if len(blogs) == 0 {
					return writePlain("no blogs\n")
				}
				table := &format.Table{Header: []string{"ID", "NAME", "PATH", "CULTURE", "OWNER"}}
				for _, blog := range blogs {
					table.Append(blog.ID, blog.Name, blog.AliasPath, blog.Culture, blog.OwnerID)
				}
				return writeTable(table)
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "only blogs owned by this username")
	return cmd
}

func newBlogGrantCmd(cfg *config.Config, jsonOutput *bool, grant bool) *cobra.Command {
	use, short := "grant", "Grant permissions on a blog and everything below it"
	if !grant {
		use, short = "revoke", "Revoke permissions granted on a blog"
	}

	return &cobra.Command{
		Use:   use + " <blog-id> <username> <permission>...",
		Short: short,
		Long:  "Permissions are create, read, modify and delete.",
		Args:  requireAtLeastArgs(3, "blog id, username and at least one permission are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			blogID, err := parsePositiveID(args[0], "blog")
			if err != nil {
				return err
			}
			permissions := make([]models.Permission, 0, len(args)-2)
			for _, raw := range args[2:] {
				permission, err := models.ParsePermission(raw)
				if err != nil {
					return err
				}
				permissions = append(permissions, permission)
			}

			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				blog, err := st.GetBlog(cmd.Context(), blogID)
				if err != nil {
					return err
				}
				if blog == nil {
					return fmt.Errorf("blog %d not found", blogID)
				}
				user, err := lookupUser(cmd.Context(), st, args[1])
				if err != nil {
					return err
				}

				changed := []models.Permission{}
				for _, permission := range permissions {
					if grant {
						if err := st.Grant(cmd.Context(), blog.ID, user.ID, permission); err != nil {
							return err
						}
						changed = append(changed, permission)
						continue
					}
					ok, err := st.Revoke(cmd.Context(), blog.ID, user.ID, permission)
					if err != nil {
						return err
					}
					if ok {
						changed = append(changed, permission)
					}
				}

				if *jsonOutput {
					return writeJSON(map[string]any{"blog_id": blog.ID, "username": user.Username, use: changed})
				}
				return writePlain("%s %v on %s for %s\n", use, changed, blog.AliasPath, user.Username)
			})
		},
	}
}

func newBlogGrantsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "grants <blog-id>",
		Short: "List permissions granted directly on a blog",
		Args:  requireExactlyArgs(1, "blog id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			blogID, err := parsePositiveID(args[0], "blog")
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				grants, err := st.ListGrants(cmd.Context(), blogID)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(grants)
				}
				table := &format.Table{Header: []string{"USER", "PERMISSION"}}
				for _, ace := range grants {
					name := fmt.Sprint(ace.UserID)
					if user, err := st.GetUserByID(cmd.Context(), ace.UserID); err == nil && user != nil {
						name = user.Username
					}
					table.Append(name, ace.Permission)
				}
				return writeTable(table)
			})
		},
	}
}

func lookupUser(ctx context.Context, st *store.Store, raw string) (*models.User, error) {
	username, err := internalauth.NormalizeUsername(raw)
	if err != nil {
		return nil, err
	}
	user, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", username)
	}
	return user, nil
}

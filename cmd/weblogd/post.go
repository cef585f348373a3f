package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"weblogd/internal/api"
	"weblogd/internal/config"
	"weblogd/internal/format"
	"weblogd/internal/weblog"
)

func newPostCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Write and read posts through the MetaWeblog API",
	}
	cmd.PersistentFlags().StringVar(&username, "username", "", "account to post as (default: WEBLOGD_USERNAME)")

	cmd.AddCommand(newPostListCmd(cfg, jsonOutput, &username))
	cmd.AddCommand(newPostShowCmd(cfg, jsonOutput, &username))
	cmd.AddCommand(newPostNewCmd(cfg, jsonOutput, &username))
	cmd.AddCommand(newPostEditCmd(cfg, jsonOutput, &username))
	cmd.AddCommand(newPostDeleteCmd(cfg, jsonOutput, &username))
	cmd.AddCommand(newPostCategoriesCmd(cfg, jsonOutput, &username))
	return cmd
}

func readPostFile(cmd *cobra.Command, path string) (weblog.Post, *bool, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return weblog.Post{}, nil, err
	}
	return parsePostMarkdown(string(data))
}

func publishFlag(cmd *cobra.Command, flag bool, front *bool) bool {
	if cmd.Flags().Changed("publish") || front == nil {
		return flag
	}
	return *front
}

func newPostListCmd(cfg *config.Config, jsonOutput *bool, username *string) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "list <blog-id>",
		Short: "List the newest posts of a blog",
		Args:  requireExactlyArgs(1, "blog id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, *username, func(client *api.Client) error {
				posts, err := client.GetRecentPosts(cmd.Context(), args[0], count)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(posts)
				}
				if len(posts) == 0 {
					return writePlain("no posts\n")
				}
				table := &format.Table{Header: []string{"ID", "DATE", "TITLE", "CATEGORIES"}}
				for _, post := range posts {
					table.Append(post.PostID, formatTime(post.DateCreated), post.Title, strings.Join(post.Categories, ","))
				}
				return writeTable(table)
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", 10, "number of posts")
	return cmd
}

func newPostShowCmd(cfg *config.Config, jsonOutput *bool, username *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show one post",
		Args:  requireExactlyArgs(1, "post id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, *username, func(client *api.Client) error {
				post, err := client.GetPost(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(post)
				}
				return writePostDetail(post)
			})
		},
	}
}

func newPostNewCmd(cfg *config.Config, jsonOutput *bool, username *string) *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "new <blog-id> <file.md|->",
		Short: "Create a post from a file with an optional YAML front matter",
		Args:  requireExactlyArgs(2, "blog id and post file are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, front, err := readPostFile(cmd, args[1])
			if err != nil {
				return err
			}
			if err := post.Validate(); err != nil {
				return err
			}
			live := publishFlag(cmd, publish, front)

			return withClient(cfg, *username, func(client *api.Client) error {
				id, err := client.NewPost(cmd.Context(), args[0], post, live)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"postid": id, "published": live})
				}
				return writePlain("created post %s\n", id)
			})
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "publish immediately (overrides front matter)")
	return cmd
}

func newPostEditCmd(cfg *config.Config, jsonOutput *bool, username *string) *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "edit <post-id> <file.md|->",
		Short: "Replace a post's content",
		Args:  requireExactlyArgs(2, "post id and post file are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, front, err := readPostFile(cmd, args[1])
			if err != nil {
				return err
			}
			if err := post.Validate(); err != nil {
				return err
			}
			live := publishFlag(cmd, publish, front)

			return withClient(cfg, *username, func(client *api.Client) error {
				ok, err := client.EditPost(cmd.Context(), args[0], post, live)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"postid": args[0], "updated": ok, "published": live})
				}
				return writePlain("updated post %s\n", args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "publish the new version (overrides front matter)")
	return cmd
}

func newPostDeleteCmd(cfg *config.Config, jsonOutput *bool, username *string) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <post-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a post",
		Args:    requireExactlyArgs(1, "post id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, *username, func(client *api.Client) error {
				ok, err := client.DeletePost(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"postid": args[0], "deleted": ok})
				}
				return writePlain("deleted post %s\n", args[0])
			})
		},
	}
}

func newPostCategoriesCmd(cfg *config.Config, jsonOutput *bool, username *string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories <blog-id>",
		Short: "List the categories posts of a blog can use",
		Args:  requireExactlyArgs(1, "blog id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, *username, func(client *api.Client) error {
				categories, err := client.GetCategories(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(categories)
				}
				for _, category := range categories {
					if err := writePlain("%s\t%s\n", category.Title, category.HTMLURL); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func writePostDetail(post weblog.Post) error {
	lines := []string{
		fmt.Sprintf("id: %s", post.PostID),
		fmt.Sprintf("title: %s", post.Title),
		fmt.Sprintf("date: %s", formatTime(post.DateCreated)),
		fmt.Sprintf("author: %s", post.UserID),
	}
	if post.Permalink != "" {
		lines = append(lines, fmt.Sprintf("permalink: %s", post.Permalink))
	}
	if len(post.Categories) > 0 {
		lines = append(lines, fmt.Sprintf("categories: %s", strings.Join(post.Categories, ", ")))
	}
	lines = append(lines, "", post.Description)
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

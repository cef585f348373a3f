package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"weblogd/internal/api"
	"weblogd/internal/config"
	"weblogd/internal/weblog"
)

func newMediaCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Upload media objects",
	}
	cmd.AddCommand(newMediaUploadCmd(cfg, jsonOutput))
	return cmd
}

func newMediaUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		username string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "upload <blog-id> <file>",
		Short: "Upload a file with metaWeblog.newMediaObject",
		Long:  "The file is held for the blog until the next post saved there commits it.",
		Args:  requireExactlyArgs(2, "blog id and file are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := readMediaObject(args[1], name)
			if err != nil {
				return err
			}

			return withClient(cfg, username, func(client *api.Client) error {
				info, err := client.NewMediaObject(cmd.Context(), args[0], obj)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"url": info.URL, "name": obj.Name, "type": obj.Type, "size": len(obj.Bits)})
				}
				return writePlain("%s\n", info.URL)
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "account to upload as (default: WEBLOGD_USERNAME)")
	cmd.Flags().StringVar(&name, "name", "", "file name sent to the server (default: the base name)")
	return cmd
}

func readMediaObject(path, name string) (weblog.MediaObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return weblog.MediaObject{}, err
	}
	if len(data) == 0 {
		return weblog.MediaObject{}, fmt.Errorf("%s is empty", path)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return weblog.MediaObject{
		Name: name,
		Type: mimetype.Detect(data).String(),
		Bits: data,
	}, nil
}

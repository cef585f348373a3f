package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"weblogd/internal/config"
	"weblogd/internal/format"
	"weblogd/internal/models"
	"weblogd/internal/store"
)

func newWorkflowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage approval workflows",
	}
	cmd.AddCommand(newWorkflowImportCmd(cfg, jsonOutput))
	cmd.AddCommand(newWorkflowListCmd(cfg, jsonOutput))
	cmd.AddCommand(newWorkflowExportCmd(cfg))
	cmd.AddCommand(newWorkflowDeleteCmd(cfg))
	return cmd
}

// parseWorkflows reads one or more YAML documents, each describing a workflow.
func parseWorkflows(r io.Reader) ([]models.Workflow, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []models.Workflow
	for {
		var wf models.Workflow
		err := dec.Decode(&wf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse workflow %d: %w", len(out)+1, err)
		}
		if strings.TrimSpace(wf.Name) == "" && len(wf.Steps) == 0 {
			continue
		}
		out = append(out, wf)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no workflows found")
	}
	return out, nil
}

func newWorkflowImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml|->",
		Short: "Create or replace workflows from YAML",
		Args:  requireExactlyArgs(1, "workflow file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			workflows, err := parseWorkflows(bytes.NewReader(data))
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				names := make([]string, 0, len(workflows))
				for i := range workflows {
					if err := st.SaveWorkflow(cmd.Context(), &workflows[i]); err != nil {
						return err
					}
					names = append(names, workflows[i].Name)
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"imported": names})
				}
				return writePlain("imported %d workflow(s): %s\n", len(names), strings.Join(names, ", "))
			})
		},
	}
}

func newWorkflowListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				workflows, err := st.ListWorkflows(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"count": len(workflows), "workflows": workflows})
				}
				if len(workflows) == 0 {
					return writePlain("no workflows\n")
				}
				table := &format.Table{Header: []string{"ID", "NAME", "CHECKOUT", "STEPS", "SCOPES"}}
				for _, wf := range workflows {
					steps := make([]string, 0, len(wf.Steps))
					for _, step := range wf.Steps {
						steps = append(steps, step.Name)
					}
					scopes := make([]string, 0, len(wf.Scopes))
					for _, scope := range wf.Scopes {
						scopes = append(scopes, scope.PathPrefix)
					}
					table.Append(wf.ID, wf.Name, wf.UseCheckInCheckOut, strings.Join(steps, " > "), strings.Join(scopes, ","))
				}
				return writeTable(table)
			})
		},
	}
}

func newWorkflowExportCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "export [name]",
		Short: "Print workflows as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				workflows, err := st.ListWorkflows(cmd.Context())
				if err != nil {
					return err
				}
				enc := yaml.NewEncoder(outputWriter)
				enc.SetIndent(2)
				found := false
				for _, wf := range workflows {
					if len(args) == 1 && wf.Name != args[0] {
						continue
					}
					found = true
					if err := enc.Encode(wf); err != nil {
						return err
					}
				}
				if len(args) == 1 && !found {
					return fmt.Errorf("workflow %q not found", args[0])
				}
				return enc.Close()
			})
		},
	}
}

func newWorkflowDeleteCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a workflow",
		Args:    requireExactlyArgs(1, "workflow name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *store.Store) error {
				ok, err := st.DeleteWorkflow(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("workflow %q not found", args[0])
				}
				return writePlain("deleted workflow %s\n", args[0])
			})
		},
	}
}

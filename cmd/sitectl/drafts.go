package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/draft"
)

func newDraftsCmd(load func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect draft branches",
	}

	manager := func() (*draft.Manager, error) {
		cfg, err := load()
		if err != nil {
			return nil, err
		}
		host, err := newHost(cfg)
		if err != nil {
			return nil, err
		}
		return draft.NewManager(host, cfg)
	}

	cmd.AddCommand(newDraftsListCmd(manager), newDraftsDiffCmd(manager))
	return cmd
}

func newDraftsListCmd(manager func() (*draft.Manager, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List drafts on every draft branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager()
			if err != nil {
				return err
			}
			drafts, err := m.ListDrafts(cmd.Context(), draft.ListOptions{})
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No drafts.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "COLLECTION\tSLUG\tBRANCH\tTITLE")
			for _, d := range drafts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Collection.Dir(), d.Slug, d.Branch, d.Title)
			}
			return tw.Flush()
		},
	}
}

func newDraftsDiffCmd(manager func() (*draft.Manager, error)) *cobra.Command {
	var branchID string

	cmd := &cobra.Command{
		Use:   "diff <collection> <slug>",
		Short: "Show a unified diff of a draft against trunk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := content.ParseDraftable(args[0])
			if err != nil {
				return err
			}
			m, err := manager()
			if err != nil {
				return err
			}

			drafted, err := m.Read(cmd.Context(), c, args[1], draft.ReadOptions{Draft: true, BranchID: branchID})
			if err != nil {
				return err
			}
			if !drafted.IsDraft {
				fmt.Fprintln(cmd.OutOrStdout(), "No draft branch holds this entry.")
				return nil
			}

			var before string
			published, err := m.Read(cmd.Context(), c, args[1], draft.ReadOptions{})
			if err == nil {
				before = published.Content
			}

			diff := draft.Diff(args[1]+".mdx", before, drafted.Content)
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Draft matches trunk.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), labelStyle.Render("Branch:"), valueStyle.Render(drafted.Branch))
			fmt.Fprintln(cmd.OutOrStdout(), diff)
			return nil
		},
	}
	cmd.Flags().StringVar(&branchID, "branch", "", "draft branch id (default resolved from the slug)")
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/search"
	"github.com/yabood/yabood/internal/vcs"
)

// newS3Client builds the bucket client for export-search --s3. Tests replace it.
var newS3Client = func(ctx context.Context, cfg config.ExportConfig) (search.PutObjectAPI, error) {
	return search.NewS3Client(ctx, cfg)
}

func newExportSearchCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		dir           string
		out           string
		toS3          bool
		includeDrafts bool
		compress      string
	)

	cmd := &cobra.Command{
		Use:   "export-search",
		Short: "Build the search snapshot and write it to a file or a bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			var reader vcs.Reader
			if dir != "" {
				reader = vcs.NewLocal(dir)
			} else {
				host, err := newHost(cfg)
				if err != nil {
					return err
				}
				reader = host
			}

			loader := content.NewLoader(reader, cfg.GitHub.ContentRoot)
			corpus, err := search.Export(cmd.Context(), loader, cfg.GitHub.Trunk, includeDrafts)
			if err != nil {
				return err
			}

			if toS3 {
				if cmd.Flags().Changed("compress") {
					cfg.Export.Compress = compress
					if compress == "none" {
						cfg.Export.Compress = ""
					}
				}
				client, err := newS3Client(cmd.Context(), cfg.Export)
				if err != nil {
					return err
				}
				exporter, err := search.NewS3Exporter(client, cfg.Export)
				if err != nil {
					return err
				}
				key, err := exporter.Upload(cmd.Context(), corpus)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), labelStyle.Render("Uploaded:"), valueStyle.Render("s3://"+cfg.Export.Bucket+"/"+key))
				return nil
			}

			data, err := json.MarshalIndent(corpus, "", "  ")
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d posts, %d projects, %d notes)\n",
				labelStyle.Render("Wrote:"), valueStyle.Render(out),
				len(corpus.BlogPosts), len(corpus.Projects), len(corpus.NoiseEntries))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "read content from a local checkout instead of GitHub")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&toS3, "s3", false, "upload to the configured export bucket")
	cmd.Flags().StringVar(&compress, "compress", "", "upload codec: zstd, gzip or none (default export.compress)")
	cmd.Flags().BoolVar(&includeDrafts, "drafts", false, "include entries flagged draft: true")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yabood/yabood/internal/config"
)

const configHeader = "# Content API configuration example\n# Copy this file to config.yaml and customize as needed\n\n"

func newGenerateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-config [file]",
		Short: "Write an example config with every default applied",
		Long:  "Write an example config with every default applied. Use - to print it instead of writing config.example.yaml.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)

			yamlData, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to generate YAML: %w", err)
			}
			output := configHeader + string(yamlData)

			outputFile := "config.example.yaml"
			if len(args) > 0 {
				outputFile = args[0]
			}

			if outputFile == "-" {
				fmt.Fprint(cmd.OutOrStdout(), output)
				return nil
			}
			if err := os.WriteFile(outputFile, []byte(output), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outputFile, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), labelStyle.Render("Generated example config:"), valueStyle.Render(outputFile))
			return nil
		},
	}
}

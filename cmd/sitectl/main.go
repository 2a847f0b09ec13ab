// Command sitectl holds the maintenance tasks for the content API: example
// config generation, search snapshot export, operator key handling, access
// token minting and draft inspection.
package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/draft"
	"github.com/yabood/yabood/internal/logger"
	"github.com/yabood/yabood/internal/search"
	"github.com/yabood/yabood/internal/vcs"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "sitectl",
		Short:         "Maintenance tasks for the content API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default $CONFIG_PATH or config.yaml)")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	root.AddCommand(
		newGenerateConfigCmd(),
		newExportSearchCmd(load),
		newKeygenCmd(),
		newSignCmd(),
		newMintTokenCmd(load),
		newDraftsCmd(load),
	)
	return root
}

// loadConfig reads .env and the YAML config the same way the server does, and
// points the package loggers at stderr.
func loadConfig(path string) (*config.Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	l := logger.New(cfg.Logging.Level)
	config.SetLogger(l)
	vcs.SetLogger(l)
	content.SetLogger(l)
	draft.SetLogger(l)
	search.SetLogger(l)
	return cfg, nil
}

// newHost builds the GitHub adapter from cfg. Tests replace it.
var newHost = func(cfg *config.Config) (vcs.Host, error) {
	if err := cfg.GitHub.Validate(); err != nil {
		return nil, err
	}
	return vcs.NewGitHub(cfg.GitHub, nil)
}

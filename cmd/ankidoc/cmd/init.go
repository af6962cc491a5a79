package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an ankidoc workspace",
	Long: `Initialize an ankidoc workspace in the current directory: write a
.ankidoc.yaml configuration with the defaults spelled out and create the
sources, outputs and prompts directory layout.`,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
}

func runInit(_ *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	configPath := filepath.Join(cwd, ".ankidoc.yaml")

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration already exists, use --force to overwrite")
	}

	defaults := map[string]interface{}{
		"sources_dir": "sources",
		"outputs_dir": "outputs",
		"prompts_dir": "prompts",
		"log": map[string]interface{}{
			"level":  "info",
			"format": "auto",
		},
		"storage": map[string]interface{}{
			"backend": "fs",
			"path":    "outputs/ankidoc.db",
		},
		"gateway": map[string]interface{}{
			"command": "claude",
			"mode":    "session",
			"timeout": "5m",
		},
		"server": map[string]interface{}{
			"addr":            ":8000",
			"request_timeout": "15m",
		},
	}

	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil { //nolint:gosec // Config file needs to be readable
		return fmt.Errorf("writing config: %w", err)
	}

	// One prompt directory per specialist; generators get a subdirectory
	// per card type.
	dirs := []string{
		"sources",
		"outputs",
		"prompts/analyst",
		"prompts/restructurer/modules",
		"prompts/generator/basic",
		"prompts/generator/cloze",
		"prompts/optimizer",
		"prompts/formatter",
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(cwd, dir), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	fmt.Printf("initialized ankidoc workspace in %s\n", cwd)
	return nil
}

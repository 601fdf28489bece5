// Package configcmd prints the effective configuration.
package configcmd

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/openkcm/tiktok-gateway/internal/cmdutils"
	"github.com/openkcm/tiktok-gateway/internal/config"
)

// Cmd prints the configuration after the environment overlay, with every
// secret redacted. onRun is called before printing.
func Cmd(buildInfo string, onRun func()) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if onRun != nil {
				onRun()
			}

			cfg, err := cmdutils.LoadConfig(buildInfo)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			out, err := Render(cfg)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}
}

func Render(cfg *config.Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return nil, fmt.Errorf("marshalling config: %w", err)
	}

	return out, nil
}

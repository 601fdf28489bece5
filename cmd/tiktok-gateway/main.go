package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/tiktok-gateway/cmd/tiktok-gateway/apiserver"
	"github.com/openkcm/tiktok-gateway/cmd/tiktok-gateway/configcmd"
	"github.com/openkcm/tiktok-gateway/cmd/tiktok-gateway/migrate"
	"github.com/openkcm/tiktok-gateway/cmd/tiktok-gateway/tokenrefresher"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "{}"

	skipGracefulShutdown bool
	gracefulShutdown     time.Duration
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "TikTok Gateway Version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		skipGracefulShutdown = true

		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), value)

		return nil
	},
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiktok-gateway",
		Short: "TikTok Gateway",
		Long:  "TikTok Gateway, implementing the TikTok Login Kit handshake and a thin proxy to the TikTok Open API.",
	}

	cmd.PersistentFlags().DurationVar(&gracefulShutdown, "graceful-shutdown", 1*time.Second, "graceful shutdown")

	cmd.AddCommand(
		versionCmd,
		apiserver.Cmd(BuildInfo),
		tokenrefresher.Cmd(BuildInfo),
		migrate.Cmd(BuildInfo),
		configcmd.Cmd(BuildInfo, func() { skipGracefulShutdown = true }),
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancelOnSignal()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slogctx.Error(ctx, "failed to start the application", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	if !skipGracefulShutdown {
		_, _ = fmt.Fprintf(os.Stderr, "Graceful shutdown in %s\n", gracefulShutdown)
		time.Sleep(gracefulShutdown)
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

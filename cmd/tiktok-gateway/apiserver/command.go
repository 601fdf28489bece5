package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/tiktok-gateway/internal/business"
	"github.com/openkcm/tiktok-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"TikTok Gateway API server",
		"TikTok Gateway API server hosts the auth, content, display and videos http API",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}

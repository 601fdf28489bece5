package tokenrefresher

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/tiktok-gateway/internal/business"
	"github.com/openkcm/tiktok-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"token-refresher",
		"TikTok Gateway token refresh job",
		"TikTok Gateway token refresh job refreshes the stored user tokens before they expire",
		buildInfo,
		cmdutils.RunAsService,
		business.TokenRefresherMain,
	)
}

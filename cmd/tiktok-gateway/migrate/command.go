package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/tiktok-gateway/internal/business"
	"github.com/openkcm/tiktok-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"TikTok Gateway migrations",
		"Applies the database migrations of the tiktok_users table",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}

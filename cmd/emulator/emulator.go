package emulator

import (
	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("emulator",
		newInit(),
		newServe(),
	)
}

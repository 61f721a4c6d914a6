package device

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/util/command"
)

const (
	indexFlag   string = "index"
	pathFlag    string = "path"
	chainIDFlag string = "chain-id"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("device",
		newAddress(),
		newSign(),
		newConfig(),
		newERC20(),
	)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

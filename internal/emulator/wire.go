//go:build wireinject

package emulator

import (
	"github.com/google/wire"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/metrics"
	"github/chapool/go-ledger/internal/wallet/seed"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	NewDevice,
	metrics.New,
	wire.FieldsOf(new(config.Server), "Emulator"),
)

// InitNewServer returns a new Server answering with the seed held by seedManager.
// The seed has to be initialized by the caller, see wallet.InitializeSeed.
func InitNewServer(
	_ config.Server,
	_ seed.Manager,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}

package ethapp

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/util"
)

const (
	FlagArbitraryDataEnabled       byte = 0x01
	FlagERC20ProvisioningNecessary byte = 0x02
	FlagStarkEnabled               byte = 0x04
	FlagStarkV2Supported           byte = 0x08
)

// AppConfiguration describes the features and version of the device application
type AppConfiguration struct {
	ArbitraryDataEnabled       bool
	ERC20ProvisioningNecessary bool
	StarkEnabled               bool
	StarkV2Supported           bool
	// Version is rendered as major.minor.patch
	Version string
}

// Encode renders the configuration as the device answers it: flags || major || minor || patch
func (c AppConfiguration) Encode() ([]byte, error) {
	var major, minor, patch uint8
	if _, err := fmt.Sscanf(c.Version, "%d.%d.%d", &major, &minor, &patch); err != nil {
		return nil, errors.Wrapf(err, "invalid app version %q", c.Version)
	}

	var flags byte
	if c.ArbitraryDataEnabled {
		flags |= FlagArbitraryDataEnabled
	}
	if c.ERC20ProvisioningNecessary {
		flags |= FlagERC20ProvisioningNecessary
	}
	if c.StarkEnabled {
		flags |= FlagStarkEnabled
	}
	if c.StarkV2Supported {
		flags |= FlagStarkV2Supported
	}

	return []byte{flags, major, minor, patch}, nil
}

// Configuration retrieves the application configuration
func (a *App) Configuration(ctx context.Context) (*AppConfiguration, error) {
	ctx = util.WithOperation(ctx, "get_app_configuration")

	answer, err := a.exchange(ctx, command(InsGetAppConfiguration, 0x00, 0x00, nil))
	if err != nil {
		util.LogFromContext(ctx).Error().Err(err).Msg("Failed to get app configuration")
		return nil, err
	}

	return decodeConfiguration(answer.Data)
}

func decodeConfiguration(data []byte) (*AppConfiguration, error) {
	if len(data) < 1 {
		return nil, missing("configuration flags")
	}

	//nolint:mnd // flags byte followed by three version bytes
	if len(data) < 4 {
		return nil, missing("version")
	}

	flags := data[0]

	return &AppConfiguration{
		ArbitraryDataEnabled:       flags&FlagArbitraryDataEnabled != 0,
		ERC20ProvisioningNecessary: flags&FlagERC20ProvisioningNecessary != 0,
		StarkEnabled:               flags&FlagStarkEnabled != 0,
		StarkV2Supported:           flags&FlagStarkV2Supported != 0,
		Version:                    fmt.Sprintf("%d.%d.%d", data[1], data[2], data[3]),
	}, nil
}

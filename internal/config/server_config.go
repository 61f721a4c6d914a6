package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix is prepended to every environment variable read by the service
const EnvPrefix = "LEDGER"

const (
	TransportTCP      = "tcp"
	TransportHTTP     = "http"
	TransportEmulator = "emulator"
)

type LoggerServer struct {
	Level              zerolog.Level `mapstructure:"-"`
	LevelName          string        `mapstructure:"level"`
	PrettyPrintConsole bool          `mapstructure:"pretty_print_console"`
}

// Device selects how the host reaches the signing device
type Device struct {
	// Transport is one of tcp, http or emulator
	Transport string        `mapstructure:"transport"`
	Address   string        `mapstructure:"address"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Emulator configures the software device used for development and tests
type Emulator struct {
	ListenHTTP   string `mapstructure:"listen_http"`
	ListenTCP    string `mapstructure:"listen_tcp"`
	KeystorePath string `mapstructure:"keystore_path"`
	Mnemonic     string `mapstructure:"mnemonic"`
	Passphrase   string `mapstructure:"passphrase"`
	Version      string `mapstructure:"version"`

	ArbitraryDataEnabled       bool `mapstructure:"arbitrary_data_enabled"`
	ERC20ProvisioningNecessary bool `mapstructure:"erc20_provisioning_necessary"`
	StarkEnabled               bool `mapstructure:"stark_enabled"`
	StarkV2Supported           bool `mapstructure:"stark_v2_supported"`

	// TrustedTokenKey is the uncompressed secp256k1 key (hex) that signs ERC-20 descriptors
	TrustedTokenKey string `mapstructure:"trusted_token_key"`
}

type Tokens struct {
	RegistryFile string `mapstructure:"registry_file"`
}

type Probe struct {
	MinVersion string `mapstructure:"min_version"`
}

type Server struct {
	Logger   LoggerServer `mapstructure:"logger"`
	Device   Device       `mapstructure:"device"`
	Emulator Emulator     `mapstructure:"emulator"`
	Tokens   Tokens       `mapstructure:"tokens"`
	Probe    Probe        `mapstructure:"probe"`
}

//nolint:dupword // Test mnemonic with repeated words
const defaultMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// LedgerTrustedTokenKey is the public key the Ethereum app uses to verify ERC-20 descriptors
const LedgerTrustedTokenKey = "0482bbf2f34f367b2e5bc21847b6566f21f0976b22d3388a9a5e446ac62d25cf725b62a2555b2dd464a4da0ab2f4d506820543af1d242470b1b1a969a27578f353"

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.pretty_print_console", false)

	v.SetDefault("device.transport", TransportTCP)
	v.SetDefault("device.address", "127.0.0.1:9999")
	v.SetDefault("device.timeout", 2*time.Minute)

	v.SetDefault("emulator.listen_http", "127.0.0.1:5000")
	v.SetDefault("emulator.listen_tcp", "127.0.0.1:9999")
	v.SetDefault("emulator.keystore_path", "")
	v.SetDefault("emulator.mnemonic", defaultMnemonic)
	v.SetDefault("emulator.passphrase", "")
	v.SetDefault("emulator.version", "1.10.2")
	v.SetDefault("emulator.arbitrary_data_enabled", true)
	v.SetDefault("emulator.erc20_provisioning_necessary", true)
	v.SetDefault("emulator.stark_enabled", false)
	v.SetDefault("emulator.stark_v2_supported", false)
	v.SetDefault("emulator.trusted_token_key", LedgerTrustedTokenKey)

	v.SetDefault("tokens.registry_file", "")
	v.SetDefault("probe.min_version", "1.9.0")
}

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined above. A .env file in the working directory and
// the TOML file named by LEDGER_CONFIG are read first when present.
func DefaultServiceConfigFromEnv() Server {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load builds the server config, returning an error instead of panicking
func Load() (Server, error) {
	// .env is optional, missing file is not an error
	if _, err := os.Stat(".env"); err == nil {
		if err := gotenv.Load(".env"); err != nil {
			return Server{}, errors.Wrap(err, "failed to load .env file")
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Server{}, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return Server{}, errors.Wrap(err, "failed to unmarshal config")
	}

	level, err := zerolog.ParseLevel(cfg.Logger.LevelName)
	if err != nil {
		return Server{}, errors.Wrapf(err, "invalid log level %q", cfg.Logger.LevelName)
	}
	cfg.Logger.Level = level

	return cfg, nil
}

package config

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	jRPC "github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/mitchellh/mapstructure"
	"github.com/shieldedlabs/midenbridge/common"
	"github.com/shieldedlabs/midenbridge/depositsync"
	"github.com/shieldedlabs/midenbridge/exitsync"
	"github.com/shieldedlabs/midenbridge/ledger"
	"github.com/shieldedlabs/midenbridge/log"
	"github.com/shieldedlabs/midenbridge/midenclient"
	"github.com/shieldedlabs/midenbridge/zcashwallet"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const (
	// FlagCfg is the flag for cfg.
	FlagCfg = "cfg"
	// FlagComponents is the flag for components.
	FlagComponents = "components"

	// EnvVarPrefix is the prefix of the environment variables that
	// override config file values.
	EnvVarPrefix = "MIDENBRIDGE"
	// ConfigType is the config file format.
	ConfigType = "toml"
)

// Config represents the configuration of the entire bridge node.
// The file is TOML format.
type Config struct {
	// Configure Log level for all the services, allow also to store the logs in a file
	Log log.Config
	// Common Config that affects all the services
	Common common.Config
	// Ledger is the durable claim ledger configuration
	Ledger ledger.Config
	// MidenClient is the rollup client configuration
	MidenClient midenclient.Config
	// ZcashWallet is the source-chain wallet configuration
	ZcashWallet zcashwallet.Config
	// DepositSync is the deposit relayer configuration
	DepositSync depositsync.Config
	// ExitSync is the exit relayer configuration
	ExitSync exitsync.Config
	// RPC is the config for the RPC server
	RPC jRPC.Config
}

// Default parses the default configuration values.
func Default() (*Config, error) {
	cfg := &Config{}
	viper.SetConfigType(ConfigType)

	if err := viper.ReadConfig(bytes.NewBuffer([]byte(DefaultValues))); err != nil {
		return nil, err
	}
	if err := unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load loads the configuration: defaults, then the config file named by the
// cfg flag, then MIDENBRIDGE_ environment variables, later sources
// overriding earlier ones.
func Load(ctx *cli.Context) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	configFilePath := ctx.String(FlagCfg)
	if configFilePath != "" {
		dirName, fileName := filepath.Split(configFilePath)

		fileExtension := strings.TrimPrefix(filepath.Ext(fileName), ".")
		fileNameWithoutExtension := strings.TrimSuffix(fileName, "."+fileExtension)

		viper.AddConfigPath(dirName)
		viper.SetConfigName(fileNameWithoutExtension)
		viper.SetConfigType(fileExtension)
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.SetEnvPrefix(EnvVarPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, err
		}
		log.Infof("config file not found, using defaults and environment")
	}
	if err := unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func unmarshal(cfg *Config) error {
	return viper.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		// this allows arrays to be decoded from env var separated by ",", example: MY_VAR="value1,value2,value3"
		mapstructure.TextUnmarshallerHookFunc(), mapstructure.StringToSliceHookFunc(","),
	)))
}

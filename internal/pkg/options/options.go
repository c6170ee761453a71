package options

import (
	"fmt"
	"time"

	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/internal/pkg/utils"
	"github.com/spf13/viper"
)

var optionslog = logging.Logger("options")

const (
	defaultNetworkName            = "mstnet"
	defaultTopic                  = "mst"
	defaultExpirationMinutes      = 1440
	defaultGossipIntervalSec      = 5
	defaultExpiryCheckIntervalSec = 10
	defaultBlockIntervalSec       = 3
	defaultCompletedCacheSize     = 4096
	defaultMaxBatchSize           = 100
)

type MstOptions struct {
	NetworkName            string
	Topic                  string
	ExpirationMinutes      int
	GossipIntervalSec      int
	ExpiryCheckIntervalSec int
	BlockIntervalSec       int
	CompletedCacheSize     int
	MaxBatchSize           int
	VerifySignatures       bool
	BootstrapPeers         []string
}

func (opt *MstOptions) ExpirationTime() time.Duration {
	return time.Duration(opt.ExpirationMinutes) * time.Minute
}

func (opt *MstOptions) GossipInterval() time.Duration {
	return time.Duration(opt.GossipIntervalSec) * time.Second
}

func (opt *MstOptions) ExpiryCheckInterval() time.Duration {
	return time.Duration(opt.ExpiryCheckIntervalSec) * time.Second
}

func (opt *MstOptions) BlockInterval() time.Duration {
	return time.Duration(opt.BlockIntervalSec) * time.Second
}

func writeDefaultToconfig(v *viper.Viper) error {
	v.Set("NetworkName", defaultNetworkName)
	v.Set("Topic", defaultTopic)
	v.Set("ExpirationMinutes", defaultExpirationMinutes)
	v.Set("GossipIntervalSec", defaultGossipIntervalSec)
	v.Set("ExpiryCheckIntervalSec", defaultExpiryCheckIntervalSec)
	v.Set("BlockIntervalSec", defaultBlockIntervalSec)
	v.Set("CompletedCacheSize", defaultCompletedCacheSize)
	v.Set("MaxBatchSize", defaultMaxBatchSize)
	v.Set("VerifySignatures", true)
	v.Set("BootstrapPeers", []string{})
	return v.SafeWriteConfig()
}

func initConfigfile(dir string, peername string) (*viper.Viper, error) {
	if err := utils.EnsureDir(dir); err != nil {
		optionslog.Errorf("check config directory failed: %s", err)
		return nil, err
	}

	v := viper.New()
	v.SetConfigName(peername + "_mst")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			optionslog.Infof("config file not found, generating...")
			if err := writeDefaultToconfig(v); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}
	return v, nil
}

// Load reads <peername>_mst.toml from dir, the file is created with the
// default values when missing
func Load(dir string, peername string) (*MstOptions, error) {
	v, err := initConfigfile(dir, peername)
	if err != nil {
		return nil, err
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	opt := &MstOptions{}
	opt.NetworkName = v.GetString("NetworkName")
	if opt.NetworkName == "" {
		opt.NetworkName = defaultNetworkName
	}
	opt.Topic = v.GetString("Topic")
	if opt.Topic == "" {
		opt.Topic = defaultTopic
	}
	opt.ExpirationMinutes = intOrDefault(v, "ExpirationMinutes", defaultExpirationMinutes)
	opt.GossipIntervalSec = intOrDefault(v, "GossipIntervalSec", defaultGossipIntervalSec)
	opt.ExpiryCheckIntervalSec = intOrDefault(v, "ExpiryCheckIntervalSec", defaultExpiryCheckIntervalSec)
	opt.BlockIntervalSec = intOrDefault(v, "BlockIntervalSec", defaultBlockIntervalSec)
	opt.CompletedCacheSize = intOrDefault(v, "CompletedCacheSize", defaultCompletedCacheSize)
	opt.MaxBatchSize = intOrDefault(v, "MaxBatchSize", defaultMaxBatchSize)
	opt.VerifySignatures = true
	if v.IsSet("VerifySignatures") {
		opt.VerifySignatures = v.GetBool("VerifySignatures")
	}
	opt.BootstrapPeers = v.GetStringSlice("BootstrapPeers")

	if err := opt.validate(); err != nil {
		return nil, err
	}
	return opt, nil
}

func intOrDefault(v *viper.Viper, key string, def int) int {
	if n := v.GetInt(key); n > 0 {
		return n
	}
	return def
}

func (opt *MstOptions) validate() error {
	if _, err := utils.StringsToAddrs(opt.BootstrapPeers); err != nil {
		return fmt.Errorf("invalid BootstrapPeers: %w", err)
	}
	return nil
}

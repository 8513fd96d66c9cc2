package config

import (
	"encoding/json"

	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	"muzzammil.xyz/jsonc"
)

var log = logging.Logger("config")

type Options struct {
	LogLevel string `json:"logLevel"`
	// Demo mines the three block walkthrough on startup.
	Demo bool `json:"demo"`

	Chain   *ChainOptions  `json:"chain"`
	Mining  *MiningOptions `json:"mining"`
	API     *APIOptions    `json:"api"`
	Storage *RedisOptions  `json:"storage"`

	// Banning guards the transaction endpoint of the API, nil disables it.
	Banning *BanningOptions `json:"banning"`
}

// Load reads a JSON-with-comments file and fills in defaults.
func Load(path string) (*Options, error) {
	_, rawJSON, err := jsonc.ReadFromFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}

	return decode(rawJSON)
}

// Parse decodes JSONC content.
func Parse(raw []byte) (*Options, error) {
	return decode(jsonc.ToJSON(raw))
}

func decode(rawJSON []byte) (*Options, error) {
	var o Options
	if err := json.Unmarshal(rawJSON, &o); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	o.Normalize()
	if err := o.Validate(); err != nil {
		return nil, err
	}

	return &o, nil
}

func DefaultOptions() *Options {
	o := &Options{}
	o.Normalize()
	return o
}

// Normalize fills every missing section with its defaults. API and storage
// stay nil when absent: they are optional services.
func (o *Options) Normalize() {
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}

	if o.Chain == nil {
		o.Chain = DefaultChainOptions()
	} else {
		o.Chain.Normalize()
	}

	if o.Mining == nil {
		o.Mining = DefaultMiningOptions()
	} else {
		o.Mining.Normalize()
	}

	if o.Storage != nil && o.Storage.Prefix == "" {
		o.Storage.Prefix = DefaultStoragePrefix
	}

	if o.Banning != nil {
		o.Banning.Normalize()
	}
}

func (o *Options) Validate() error {
	if err := o.Chain.Validate(); err != nil {
		return err
	}

	if o.API != nil && o.API.Port <= 0 {
		return errors.Errorf("api port %d is invalid", o.API.Port)
	}

	if o.Banning != nil {
		if err := o.Banning.Validate(); err != nil {
			return err
		}
	}

	return nil
}

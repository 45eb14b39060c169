/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"bytes"
	_ "embed"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "REDEEMVERIFY"
	// LegacyKeysEnv is the variable the original offline processor read its keys from.
	LegacyKeysEnv = "KEYS"
	// ConfigFileEnv points to an optional configuration file merged over the defaults.
	ConfigFileEnv = EnvPrefix + "_CONFIG"

	MalformedAbort = "abort"
	MalformedRoute = "route"

	LedgerFile     = "file"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"

	redacted = "<redacted>"
)

//go:embed config.yaml
var defaultConfig []byte

type Config struct {
	Keys     []string `mapstructure:"keys"     yaml:"keys"`
	Workers  int      `mapstructure:"workers"  yaml:"workers"`
	Input    Input    `mapstructure:"input"    yaml:"input"`
	Cache    Cache    `mapstructure:"cache"    yaml:"cache"`
	Ledger   Ledger   `mapstructure:"ledger"   yaml:"ledger"`
	Metrics  Metrics  `mapstructure:"metrics"  yaml:"metrics"`
	Logging  Logging  `mapstructure:"logging"  yaml:"logging"`
	Progress Progress `mapstructure:"progress" yaml:"progress"`
}

type Input struct {
	Delimiter       string `mapstructure:"delimiter"       yaml:"delimiter"`
	NestedDelimiter string `mapstructure:"nestedDelimiter" yaml:"nestedDelimiter"`
	Escape          string `mapstructure:"escape"          yaml:"escape"`
	Header          bool   `mapstructure:"header"          yaml:"header"`
	Malformed       string `mapstructure:"malformed"       yaml:"malformed"`
}

type Cache struct {
	Enabled bool  `mapstructure:"enabled" yaml:"enabled"`
	MaxCost int64 `mapstructure:"maxCost" yaml:"maxCost"`
}

type Ledger struct {
	Driver        string `mapstructure:"driver"        yaml:"driver"`
	SuccessExt    string `mapstructure:"successExt"    yaml:"successExt"`
	FailureExt    string `mapstructure:"failureExt"    yaml:"failureExt"`
	IncludeReason bool   `mapstructure:"includeReason" yaml:"includeReason"`
	DataSource    string `mapstructure:"dataSource"    yaml:"dataSource"`
	Table         string `mapstructure:"table"         yaml:"table"`
}

type Metrics struct {
	Pushgateway string `mapstructure:"pushgateway" yaml:"pushgateway"`
	Job         string `mapstructure:"job"         yaml:"job"`
}

type Logging struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type Progress struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// NewViper returns a viper instance with the embedded defaults and the environment bindings.
// Callers bind their command line flags on it before calling Load.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		return nil, errors.Wrap(err, "couldn't read the default configuration")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("keys", EnvPrefix+"_KEYS", LegacyKeysEnv); err != nil {
		return nil, errors.Wrap(err, "failed binding keys environment")
	}
	return v, nil
}

// Load merges file (or the file named by REDEEMVERIFY_CONFIG) into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if len(file) == 0 {
		file = v.GetString("config")
	}
	if len(file) != 0 {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "couldn't read the config file [%s]", file)
		}
	}

	c := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           c,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed creating config decoder")
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal the configuration")
	}
	c.Keys = trimKeys(c.Keys)
	return c, nil
}

func trimKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); len(k) != 0 {
			out = append(out, k)
		}
	}
	return out
}

// WorkerCount resolves the configured pool size.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Redacted returns a copy safe to print: issuer keys and the data source are masked.
func (c *Config) Redacted() Config {
	r := *c
	r.Keys = make([]string, len(c.Keys))
	for i := range r.Keys {
		r.Keys[i] = redacted
	}
	if len(r.Ledger.DataSource) != 0 {
		r.Ledger.DataSource = redacted
	}
	return r
}

/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package common holds the flags and the configuration loading shared by the sub-commands.
package common

import (
	"github.com/hyperledger-labs/redeemverify/token/services/config"
	"github.com/hyperledger-labs/redeemverify/token/services/logging"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

var (
	// ConfigFile is merged over the embedded defaults
	ConfigFile string
	// Keys are the issuer signing keys, standard base64
	Keys []string
	// LogLevel overrides logging.level
	LogLevel string
)

// flagBindings maps configuration keys to the flags that override them.
var flagBindings = map[string]string{
	"keys":                 "keys",
	"logging.level":        "log-level",
	"workers":              "workers",
	"input.header":         "header",
	"input.malformed":      "malformed",
	"ledger.driver":        "ledger",
	"ledger.dataSource":    "data-source",
	"ledger.includeReason": "include-reason",
	"metrics.pushgateway":  "pushgateway",
}

// AddFlags registers the flags every sub-command understands.
func AddFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&ConfigFile, "config", "c", "", "configuration file merged over the defaults")
	flags.StringSliceVarP(&Keys, "keys", "k", nil, "issuer signing keys, base64, comma separated")
	flags.StringVar(&LogLevel, "log-level", "", "logging level (debug, info, warn, error)")
}

// LoadConfig resolves the configuration from defaults, file, environment and the flags that were
// set, and initialises logging with it.
func LoadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	v, err := config.NewViper()
	if err != nil {
		return nil, err
	}
	for key, name := range flagBindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, errors.Wrapf(err, "failed binding flag [%s]", name)
		}
	}
	cfg, err := config.Load(v, ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return nil, errors.WithMessage(err, "failed initialising logging")
	}
	return cfg, nil
}

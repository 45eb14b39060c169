/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperledger-labs/redeemverify/token/services/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, file string) *config.Config {
	t.Helper()
	v, err := config.NewViper()
	require.NoError(t, err)
	c, err := config.Load(v, file)
	require.NoError(t, err)
	return c
}

func TestDefaults(t *testing.T) {
	c := load(t, "")

	assert.Empty(t, c.Keys)
	assert.Equal(t, ";", c.Input.Delimiter)
	assert.Equal(t, ",", c.Input.NestedDelimiter)
	assert.Equal(t, `\`, c.Input.Escape)
	assert.False(t, c.Input.Header)
	assert.Equal(t, config.MalformedAbort, c.Input.Malformed)
	assert.True(t, c.Cache.Enabled)
	assert.Equal(t, config.LedgerFile, c.Ledger.Driver)
	assert.Equal(t, "success", c.Ledger.SuccessExt)
	assert.Equal(t, "error", c.Ledger.FailureExt)
	assert.Equal(t, 5*time.Second, c.Progress.Interval)
	assert.Positive(t, c.WorkerCount())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(config.LegacyKeysEnv, "a2V5MQ==, a2V5Mg==")
	t.Setenv("REDEEMVERIFY_WORKERS", "3")
	t.Setenv("REDEEMVERIFY_INPUT_MALFORMED", "route")
	t.Setenv("REDEEMVERIFY_PROGRESS_INTERVAL", "250ms")

	c := load(t, "")
	assert.Equal(t, []string{"a2V5MQ==", "a2V5Mg=="}, c.Keys)
	assert.Equal(t, 3, c.WorkerCount())
	assert.Equal(t, config.MalformedRoute, c.Input.Malformed)
	assert.Equal(t, 250*time.Millisecond, c.Progress.Interval)
}

func TestConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "verify.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
keys:
  - a2V5MQ==
input:
  header: true
ledger:
  driver: sqlite
  dataSource: file:ledger.db
`), 0o600))

	c := load(t, file)
	assert.Equal(t, []string{"a2V5MQ=="}, c.Keys)
	assert.True(t, c.Input.Header)
	assert.Equal(t, ";", c.Input.Delimiter)
	assert.Equal(t, config.LedgerSQLite, c.Ledger.Driver)
	assert.Equal(t, "redemption_outcomes", c.Ledger.Table)
	require.NoError(t, c.Validate())
}

func TestConfigFileFromEnvironment(t *testing.T) {
	file := filepath.Join(t.TempDir(), "verify.yaml")
	require.NoError(t, os.WriteFile(file, []byte("workers: 7\n"), 0o600))
	t.Setenv(config.ConfigFileEnv, file)

	c := load(t, "")
	assert.Equal(t, 7, c.Workers)
}

func TestMissingConfigFile(t *testing.T) {
	v, err := config.NewViper()
	require.NoError(t, err)
	_, err = config.Load(v, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couldn't read the config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		errMsg string
	}{
		{name: "valid", mutate: func(c *config.Config) {}},
		{name: "no keys", mutate: func(c *config.Config) { c.Keys = nil }, errMsg: "at least one issuer key"},
		{name: "negative workers", mutate: func(c *config.Config) { c.Workers = -1 }, errMsg: "workers must not be negative"},
		{name: "long delimiter", mutate: func(c *config.Config) { c.Input.Delimiter = ";;" }, errMsg: "delimiter must be a single byte"},
		{name: "escape equals delimiter", mutate: func(c *config.Config) { c.Input.Escape = ";" }, errMsg: "must differ from the delimiters"},
		{name: "quote delimiter", mutate: func(c *config.Config) { c.Input.Delimiter = `"` }, errMsg: "double quote is reserved"},
		{name: "unknown policy", mutate: func(c *config.Config) { c.Input.Malformed = "skip" }, errMsg: "malformed must be one of"},
		{name: "unknown driver", mutate: func(c *config.Config) { c.Ledger.Driver = "kafka" }, errMsg: "unknown driver"},
		{name: "same extensions", mutate: func(c *config.Config) { c.Ledger.FailureExt = "success" }, errMsg: "must differ"},
		{name: "sql without data source", mutate: func(c *config.Config) { c.Ledger.Driver = config.LedgerPostgres }, errMsg: "dataSource is required"},
		{name: "bad table", mutate: func(c *config.Config) {
			c.Ledger.Driver = config.LedgerSQLite
			c.Ledger.DataSource = "file:x.db"
			c.Ledger.Table = "outcomes; DROP TABLE x"
		}, errMsg: "invalid table name"},
		{name: "negative interval", mutate: func(c *config.Config) { c.Progress.Interval = -time.Second }, errMsg: "progress.interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := load(t, "")
			c.Keys = []string{"a2V5MQ=="}
			tt.mutate(c)
			err := c.Validate()
			if len(tt.errMsg) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRedacted(t *testing.T) {
	c := load(t, "")
	c.Keys = []string{"secret1", "secret2"}
	c.Ledger.DataSource = "postgres://user:pw@db/ledger"

	r := c.Redacted()
	assert.Equal(t, []string{"<redacted>", "<redacted>"}, r.Keys)
	assert.Equal(t, "<redacted>", r.Ledger.DataSource)
	assert.Equal(t, "secret1", c.Keys[0])
}

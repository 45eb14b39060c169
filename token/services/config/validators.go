/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"regexp"

	"github.com/pkg/errors"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate returns nil if the configuration can drive a batch run, an error naming the first
// offending setting otherwise.
func (c *Config) Validate() error {
	if len(c.Keys) == 0 {
		return errors.New("at least one issuer key is required")
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if err := c.Input.validate(); err != nil {
		return errors.WithMessage(err, "invalid input section")
	}
	if c.Cache.MaxCost < 0 {
		return errors.Errorf("cache.maxCost must not be negative, got %d", c.Cache.MaxCost)
	}
	if err := c.Ledger.validate(); err != nil {
		return errors.WithMessage(err, "invalid ledger section")
	}
	if c.Progress.Interval < 0 {
		return errors.Errorf("progress.interval must not be negative, got %s", c.Progress.Interval)
	}
	return nil
}

func (i *Input) validate() error {
	for name, value := range map[string]string{
		"delimiter":       i.Delimiter,
		"nestedDelimiter": i.NestedDelimiter,
		"escape":          i.Escape,
	} {
		if len(value) != 1 {
			return errors.Errorf("%s must be a single byte, got [%s]", name, value)
		}
	}
	if i.Escape == i.Delimiter || i.Escape == i.NestedDelimiter {
		return errors.Errorf("escape [%s] must differ from the delimiters", i.Escape)
	}
	if i.Delimiter == `"` || i.Escape == `"` {
		return errors.New("the double quote is reserved for quoted fields")
	}
	switch i.Malformed {
	case MalformedAbort, MalformedRoute:
	default:
		return errors.Errorf("malformed must be one of [%s, %s], got [%s]", MalformedAbort, MalformedRoute, i.Malformed)
	}
	return nil
}

func (l *Ledger) validate() error {
	switch l.Driver {
	case LedgerFile:
		if len(l.SuccessExt) == 0 || len(l.FailureExt) == 0 {
			return errors.New("successExt and failureExt must be set")
		}
		if l.SuccessExt == l.FailureExt {
			return errors.Errorf("successExt and failureExt must differ, both are [%s]", l.SuccessExt)
		}
	case LedgerSQLite, LedgerPostgres:
		if len(l.DataSource) == 0 {
			return errors.Errorf("dataSource is required for driver [%s]", l.Driver)
		}
		if !tableName.MatchString(l.Table) {
			return errors.Errorf("invalid table name [%s]", l.Table)
		}
	default:
		return errors.Errorf("unknown driver [%s]", l.Driver)
	}
	return nil
}

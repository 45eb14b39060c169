/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package batch

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/hyperledger-labs/redeemverify/token/services/config"
	"github.com/hyperledger-labs/redeemverify/token/services/issuer"
	"github.com/hyperledger-labs/redeemverify/token/services/logging"
	"github.com/hyperledger-labs/redeemverify/token/services/redemption"
	"github.com/hyperledger-labs/redeemverify/token/services/verifier"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newConfig(t *testing.T, keys ...string) *config.Config {
	t.Helper()
	v, err := config.NewViper()
	require.NoError(t, err)
	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	cfg.Keys = keys
	cfg.Progress.Interval = 0
	return cfg
}

// writeSample generates an export in dir and returns its path and description.
func writeSample(t *testing.T, dir string, opts redemption.SampleOptions) (string, *redemption.Sample) {
	t.Helper()
	var buf bytes.Buffer
	s, err := redemption.GenerateSample(&buf, redemption.NewDecoder(redemption.DefaultOptions()), opts)
	require.NoError(t, err)
	path := filepath.Join(dir, "redemptions.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path, s
}

// readIDs returns the sorted first column of a ledger file.
func readIDs(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	ids := []string{}
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if len(line) == 0 {
			continue
		}
		ids = append(ids, strings.Split(line, ",")[0])
	}
	sort.Strings(ids)
	return ids
}

func sorted(ids ...[]string) []string {
	out := []string{}
	for _, l := range ids {
		out = append(out, l...)
	}
	sort.Strings(out)
	return out
}

func TestRunThreeRecords(t *testing.T) {
	dir := t.TempDir()
	input, s := writeSample(t, dir, redemption.SampleOptions{Count: 3, Tampered: 0.34, Unknown: 0.34, Value: decimal.NewFromInt(2)})
	require.Len(t, s.Valid, 1)

	log := &logging.MockLogger{}
	job, err := NewJob(newConfig(t, s.Key.EncodeBase64()), WithLogger(log))
	require.NoError(t, err)
	summary, err := job.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, Finalized, job.State())
	assert.True(t, log.Contains("INFO: started 3 jobs"), log.Entries())
	assert.True(t, log.Contains("run summary"), log.Entries())

	assert.Equal(t, 1, summary.Verified)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Reasons[verifier.SignatureMismatch])
	assert.Equal(t, 1, summary.Reasons[verifier.UnknownIssuer])
	assert.Equal(t, "2", summary.VerifiedValue.String())
	assert.Equal(t, "4", summary.FailedValue.String())

	assert.Equal(t, s.Valid, readIDs(t, filepath.Join(dir, "redemptions.success")))
	assert.Equal(t, sorted(s.Tampered, s.Unknown), readIDs(t, filepath.Join(dir, "redemptions.error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(job.Metrics.JobsStarted))
}

func TestRunWorkerCountDoesNotChangeLedgers(t *testing.T) {
	dir := t.TempDir()
	input, s := writeSample(t, dir, redemption.SampleOptions{Count: 60, Tampered: 0.25, Unknown: 0.25})

	var results [][2][]string
	for _, workers := range []int{1, 8} {
		cfg := newConfig(t, s.Key.EncodeBase64())
		cfg.Workers = workers
		job, err := NewJob(cfg)
		require.NoError(t, err)
		_, err = job.Run(context.Background(), input)
		require.NoError(t, err)
		results = append(results, [2][]string{
			readIDs(t, filepath.Join(dir, "redemptions.success")),
			readIDs(t, filepath.Join(dir, "redemptions.error")),
		})
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, sorted(s.Valid), results[0][0])
	assert.Len(t, results[0][1], 30)
}

func TestRunMalformedPolicy(t *testing.T) {
	dir := t.TempDir()
	input, s := writeSample(t, dir, redemption.SampleOptions{Count: 2})
	f, err := os.OpenFile(input, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("bad-1;pay-bad;not a credential;ts\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Run("abort", func(t *testing.T) {
		job, err := NewJob(newConfig(t, s.Key.EncodeBase64()))
		require.NoError(t, err)
		_, err = job.Run(context.Background(), input)
		require.Error(t, err)
		var fe *redemption.FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, 3, fe.Line)
		assert.Equal(t, Aborted, job.State())
	})

	t.Run("route", func(t *testing.T) {
		cfg := newConfig(t, s.Key.EncodeBase64())
		cfg.Input.Malformed = config.MalformedRoute
		cfg.Ledger.IncludeReason = true
		log := &logging.MockLogger{}
		job, err := NewJob(cfg, WithLogger(log))
		require.NoError(t, err)
		summary, err := job.Run(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, Finalized, job.State())
		assert.Equal(t, 2, summary.Verified)
		assert.Equal(t, 1, summary.Reasons[verifier.MalformedRecord])

		raw, err := os.ReadFile(filepath.Join(dir, "redemptions.error"))
		require.NoError(t, err)
		assert.Equal(t, "bad-1,pay-bad,ts,malformed_record\n", string(raw))
		assert.True(t, log.Contains("WARN: routing malformed record [bad-1] at line 3"), log.Entries())
	})
}

func TestRunAbortsOnBadKey(t *testing.T) {
	dir := t.TempDir()
	input, s := writeSample(t, dir, redemption.SampleOptions{Count: 1})

	job, err := NewJob(newConfig(t, s.Key.EncodeBase64(), "not-a-key"))
	require.NoError(t, err)
	_, err = job.Run(context.Background(), input)
	var kde *issuer.KeyDecodeError
	require.ErrorAs(t, err, &kde)
	assert.Equal(t, 1, kde.Index)
	assert.Equal(t, Aborted, job.State())
	assert.NoFileExists(t, filepath.Join(dir, "redemptions.success"))
}

func TestRunRefusesToOverwriteInput(t *testing.T) {
	dir := t.TempDir()
	generated, s := writeSample(t, dir, redemption.SampleOptions{Count: 5})
	input := filepath.Join(dir, "export.error")
	require.NoError(t, os.Rename(generated, input))
	before, err := os.ReadFile(input)
	require.NoError(t, err)

	job, err := NewJob(newConfig(t, s.Key.EncodeBase64()))
	require.NoError(t, err)
	_, err = job.Run(context.Background(), input)
	assert.ErrorContains(t, err, "would overwrite the input")
	assert.Equal(t, Aborted, job.State())

	after, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, filepath.Join(dir, "export.success"))
}

func TestRunEmptyInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(input, []byte("\n\n"), 0o600))
	_, s := writeSample(t, dir, redemption.SampleOptions{Count: 0})

	job, err := NewJob(newConfig(t, s.Key.EncodeBase64()))
	require.NoError(t, err)
	summary, err := job.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total())
	assert.Empty(t, readIDs(t, filepath.Join(dir, "empty.success")))
	assert.Empty(t, readIDs(t, filepath.Join(dir, "empty.error")))
}

func TestRunOnce(t *testing.T) {
	dir := t.TempDir()
	input, s := writeSample(t, dir, redemption.SampleOptions{Count: 1})
	job, err := NewJob(newConfig(t, s.Key.EncodeBase64()))
	require.NoError(t, err)
	_, err = job.Run(context.Background(), input)
	require.NoError(t, err)
	_, err = job.Run(context.Background(), input)
	assert.ErrorContains(t, err, "already ran")
}

func TestRunSQLiteLedger(t *testing.T) {
	dir := t.TempDir()
	input, s := writeSample(t, dir, redemption.SampleOptions{Count: 4, Unknown: 0.5})
	cfg := newConfig(t, s.Key.EncodeBase64())
	cfg.Ledger.Driver = config.LedgerSQLite
	cfg.Ledger.DataSource = "file:" + filepath.Join(dir, "ledger.db")

	job, err := NewJob(cfg)
	require.NoError(t, err)
	_, err = job.Run(context.Background(), input)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", cfg.Ledger.DataSource)
	require.NoError(t, err)
	defer db.Close()
	counts := map[string]int{}
	rows, err := db.Query("SELECT outcome, COUNT(*) FROM redemption_outcomes WHERE run_id = ? GROUP BY outcome", job.RunID)
	require.NoError(t, err)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		require.NoError(t, rows.Scan(&outcome, &n))
		counts[outcome] = n
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, map[string]int{"success": 2, "failure": 2}, counts)
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		Initializing: "Initializing",
		Dispatching:  "Dispatching",
		Draining:     "Draining",
		Finalized:    "Finalized",
		Aborted:      "Aborted",
		State(9):     "Unknown",
	} {
		assert.Equal(t, want, s.String())
	}
}

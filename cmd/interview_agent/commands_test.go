package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-dispatch/internal/types"
)

const sampleCSV = `Candidate Name,Email,Role,Interview Rounds,Calendly HR,Calendly Tech,Calendly Hiring Manager,Added On
Ada Lovelace,ada@example.com,Backend Engineer,"HR, Tech",https://calendly.com/acme/hr,https://calendly.com/acme/tech,,2025-03-01
Grace Hopper,grace@example.com,Compiler Engineer,Hiring Manager,,,https://calendly.com/acme/hm,2025-03-02
`

var configEnvVars = []string{
	"DATABASE_URL", "MAILERSEND_API_KEY", "MAILERSEND_URL", "FROM_EMAIL", "FROM_NAME",
	"SEND_RATE_PER_SECOND", "BATCH_SIZE", "CONCURRENCY", "MAX_ATTEMPTS",
	"DELETE_UNPROCESSABLE", "VERBOSE",
}

// isolateEnv clears configuration variables that a developer .env may have set.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnvVars {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func tempDB(t *testing.T) string {
	t.Helper()
	return "sqlite:" + filepath.Join(t.TempDir(), "interviews.db")
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candidates.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func listRecords(t *testing.T, dbURL string, extra ...string) []types.Record {
	t.Helper()
	out, err := execute(t, append([]string{"records", "--db-url", dbURL, "--json"}, extra...)...)
	require.NoError(t, err, out)

	var recs []types.Record
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	return recs
}

// fakeMailerSend accepts every email and counts the requests.
func fakeMailerSend(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		calls.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestImportSplitAndList(t *testing.T) {
	isolateEnv(t)
	dbURL := tempDB(t)

	out, err := execute(t, "import", "--db-url", dbURL, "--file", writeCSV(t))
	require.NoError(t, err)
	assert.Contains(t, out, "CSV IMPORT")

	masters := listRecords(t, dbURL, "--status", "unsplit")
	require.Len(t, masters, 2)

	out, err = execute(t, "split", "--db-url", dbURL, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "SPLIT PLAN (DRY RUN)")
	assert.Len(t, listRecords(t, dbURL), 2, "dry run writes nothing")

	out, err = execute(t, "split", "--db-url", dbURL)
	require.NoError(t, err)
	assert.Contains(t, out, "SPLIT SUMMARY")

	assert.Empty(t, listRecords(t, dbURL, "--status", "unsplit"))
	rounds := listRecords(t, dbURL, "--status", "split")
	require.Len(t, rounds, 3)

	links := map[string]string{}
	for _, r := range rounds {
		links[r.Email+"/"+r.RoundName] = r.ResolvedLink
	}
	assert.Equal(t, "https://calendly.com/acme/hr", links["ada@example.com/HR"])
	assert.Equal(t, "https://calendly.com/acme/tech", links["ada@example.com/Tech"])
	assert.Equal(t, "https://calendly.com/acme/hm", links["grace@example.com/Hiring Manager"])

	assert.Len(t, listRecords(t, dbURL, "--email", "ada@example.com"), 2)
}

func TestRunCommand_SplitsAndDispatches(t *testing.T) {
	isolateEnv(t)
	dbURL := tempDB(t)
	srv, calls := fakeMailerSend(t, http.StatusAccepted)
	t.Setenv("MAILERSEND_URL", srv.URL)
	t.Setenv("MAILERSEND_API_KEY", "test-key")

	_, err := execute(t, "import", "--db-url", dbURL, "--file", writeCSV(t))
	require.NoError(t, err)

	out, err := execute(t, "run", "--db-url", dbURL)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Step 1/2")
	assert.Contains(t, out, "Sent 3 of 3 pending invitations")
	assert.EqualValues(t, 3, calls.Load())

	assert.Empty(t, listRecords(t, dbURL, "--pending"))
	for _, r := range listRecords(t, dbURL) {
		assert.Equal(t, types.DispatchStateSent, r.DispatchState())
		require.NotNil(t, r.TATHours)
		assert.GreaterOrEqual(t, *r.TATHours, 0.0)
	}
}

func TestDispatchPending_FailuresLeaveRecordsPending(t *testing.T) {
	isolateEnv(t)
	dbURL := tempDB(t)
	srv, calls := fakeMailerSend(t, http.StatusUnprocessableEntity)
	t.Setenv("MAILERSEND_URL", srv.URL)
	t.Setenv("MAILERSEND_API_KEY", "test-key")

	_, err := execute(t, "import", "--db-url", dbURL, "--file", writeCSV(t))
	require.NoError(t, err)
	_, err = execute(t, "split", "--db-url", dbURL)
	require.NoError(t, err)

	out, err := execute(t, "dispatch-pending", "--db-url", dbURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 3 dispatches failed")
	assert.Contains(t, out, "DISPATCH SUMMARY")
	assert.EqualValues(t, 3, calls.Load(), "422 is not retried")

	assert.Len(t, listRecords(t, dbURL, "--pending", "--status", "split"), 3)
}

func TestDispatchCommand_SingleTrigger(t *testing.T) {
	isolateEnv(t)
	dbURL := tempDB(t)
	srv, calls := fakeMailerSend(t, http.StatusAccepted)
	t.Setenv("MAILERSEND_URL", srv.URL)
	t.Setenv("MAILERSEND_API_KEY", "test-key")

	_, err := execute(t, "import", "--db-url", dbURL, "--file", writeCSV(t))
	require.NoError(t, err)
	_, err = execute(t, "split", "--db-url", dbURL)
	require.NoError(t, err)

	rounds := listRecords(t, dbURL, "--email", "grace@example.com")
	require.Len(t, rounds, 1)

	data, err := json.Marshal(rounds[0].Trigger())
	require.NoError(t, err)
	triggerPath := filepath.Join(t.TempDir(), "trigger.json")
	require.NoError(t, os.WriteFile(triggerPath, data, 0o644))

	out, err := execute(t, "dispatch", "--db-url", dbURL, "--trigger", triggerPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "INVITATION SENT")
	assert.EqualValues(t, 1, calls.Load())

	assert.Len(t, listRecords(t, dbURL, "--pending", "--status", "split"), 2)
}

func TestDispatchCommand_RepeatIsRejected(t *testing.T) {
	isolateEnv(t)
	dbURL := tempDB(t)
	srv, calls := fakeMailerSend(t, http.StatusAccepted)
	t.Setenv("MAILERSEND_URL", srv.URL)
	t.Setenv("MAILERSEND_API_KEY", "test-key")

	_, err := execute(t, "import", "--db-url", dbURL, "--file", writeCSV(t))
	require.NoError(t, err)
	_, err = execute(t, "split", "--db-url", dbURL)
	require.NoError(t, err)

	rounds := listRecords(t, dbURL, "--email", "grace@example.com")
	require.Len(t, rounds, 1)
	rec := rounds[0]
	args := []string{"dispatch", "--db-url", dbURL, "--record-id", rec.ID.String(),
		"--name", rec.CandidateName, "--email", rec.Email, "--role", rec.Role,
		"--round", rec.RoundName, "--link", rec.ResolvedLink}

	out, err := execute(t, args...)
	require.NoError(t, err, out)
	sent := listRecords(t, dbURL, "--email", "grace@example.com")[0]
	require.NotNil(t, sent.MailSentTime)

	_, err = execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already sent")
	assert.EqualValues(t, 1, calls.Load(), "the candidate is mailed once")

	again := listRecords(t, dbURL, "--email", "grace@example.com")[0]
	assert.True(t, sent.MailSentTime.Equal(*again.MailSentTime))
}

func TestImport_RowWithoutRoleIsRejected(t *testing.T) {
	isolateEnv(t)
	dbURL := tempDB(t)
	srv, calls := fakeMailerSend(t, http.StatusAccepted)
	t.Setenv("MAILERSEND_URL", srv.URL)
	t.Setenv("MAILERSEND_API_KEY", "test-key")

	csv := `Candidate Name,Email,Role,Interview Rounds
Ada Lovelace,ada@example.com,Backend Engineer,HR
Grace Hopper,grace@example.com,,HR
`
	path := filepath.Join(t.TempDir(), "no-role.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	_, err := execute(t, "import", "--db-url", dbURL, "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "Role")

	out, err := execute(t, "run", "--db-url", dbURL)
	require.NoError(t, err, out)
	assert.Empty(t, listRecords(t, dbURL), "a rejected file leaves nothing to split or dispatch")
	assert.Zero(t, calls.Load())
}

func TestDispatchCommand_InvalidInput(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "no trigger",
			args:    []string{"dispatch"},
			wantErr: "either --trigger or --record-id must be provided",
		},
		{
			name:    "bad record id",
			args:    []string{"dispatch", "--record-id", "nope"},
			wantErr: "invalid --record-id",
		},
		{
			name: "missing round",
			args: []string{"dispatch", "--record-id", "3f1c2a9e-4b7d-4e2a-9c1f-8d6b5a4e3c2b",
				"--name", "Ada", "--email", "ada@example.com", "--role", "PM"},
			wantErr: "invalid trigger",
		},
		{
			name: "missing API key",
			args: []string{"dispatch", "--record-id", "3f1c2a9e-4b7d-4e2a-9c1f-8d6b5a4e3c2b",
				"--name", "Ada", "--email", "ada@example.com", "--role", "PM", "--round", "HR"},
			wantErr: "MAILERSEND_API_KEY environment variable or --api-key flag is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRecordsCommand_Errors(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "records", "--db-url", tempDB(t), "--status", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --status")

	_, err = execute(t, "records")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL environment variable or --db-url flag is required")

	_, err = execute(t, "records", "--db-url", "mysql://localhost/db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}

func TestLoadConfig_FlagsOverrideFileAndEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DATABASE_URL", "sqlite:from-env.db")
	t.Setenv("FROM_NAME", "Env Recruiting")

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database_url": "sqlite:from-file.db", "concurrency": 8}`), 0o644))

	resetFlags(rootCmd)
	require.NoError(t, recordsCmd.ParseFlags([]string{"--config", path, "--db-url", "sqlite:from-flag.db"}))
	cfg, err := loadConfig(recordsCmd)
	require.NoError(t, err)

	assert.Equal(t, "sqlite:from-flag.db", cfg.DatabaseURL)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, "Env Recruiting", cfg.FromName)
	assert.Equal(t, 50, cfg.BatchSize)
}

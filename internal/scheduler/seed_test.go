package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const seedYAML = `
schedules:
  - id: 11111111-1111-1111-1111-111111111111
    org_id: org-1
    agent_id: digest
    agent_url: http://agents.local/digest
    name: daily digest
    prompt: summarize yesterday
    schedule_type: cron
    cron_expression: "0 8 * * *"
    timezone: Asia/Shanghai
    metadata:
      channel: ops
  - id: 22222222-2222-2222-2222-222222222222
    org_id: org-1
    agent_id: watcher
    name: inbox watcher
    schedule_type: interval
    interval_value: 15
    interval_unit: minutes
    status: paused
    retry:
      max_retries: 0
      retry_delay_ms: 1000
  - id: 33333333-3333-3333-3333-333333333333
    org_id: org-1
    agent_id: launcher
    schedule_type: one_time
    one_time_at: 2026-03-02T09:30:00Z
`

func seedDefaults() SeedDefaults {
	return SeedDefaults{Timezone: "UTC", Retry: DefaultRetryConfig()}
}

func TestParseSeed(t *testing.T) {
	schedules, err := ParseSeed([]byte(seedYAML), seedDefaults())
	require.NoError(t, err)
	require.Len(t, schedules, 3)

	cronSched := schedules[0]
	assert.Equal(t, ScheduleTypeCron, cronSched.ScheduleType)
	assert.Equal(t, "Asia/Shanghai", cronSched.Timezone)
	assert.Equal(t, ScheduleStatusActive, cronSched.Status)
	assert.Equal(t, DefaultRetryConfig(), cronSched.RetryConfig)
	assert.Equal(t, "ops", cronSched.Metadata["channel"])

	interval := schedules[1]
	assert.Equal(t, "UTC", interval.Timezone)
	assert.Equal(t, ScheduleStatusPaused, interval.Status)
	assert.Equal(t, 0, interval.RetryConfig.MaxRetries)
	assert.Equal(t, int64(1000), interval.RetryConfig.RetryDelayMs)
	assert.Equal(t, 2.0, interval.RetryConfig.BackoffMultiplier)

	oneTime := schedules[2]
	require.NotNil(t, oneTime.OneTimeAt)
	assert.True(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC).Equal(*oneTime.OneTimeAt))
}

func TestParseSeed_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing ids":   "schedules:\n  - schedule_type: cron\n    cron_expression: \"* * * * *\"\n",
		"bad cron":      "schedules:\n  - {id: a, org_id: o, agent_id: g, schedule_type: cron, cron_expression: nope}\n",
		"bad interval":  "schedules:\n  - {id: a, org_id: o, agent_id: g, schedule_type: interval, interval_value: 0, interval_unit: hour}\n",
		"no one_time":   "schedules:\n  - {id: a, org_id: o, agent_id: g, schedule_type: one_time}\n",
		"unknown type":  "schedules:\n  - {id: a, org_id: o, agent_id: g, schedule_type: lunar}\n",
		"malformed yml": "schedules: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed([]byte(raw), seedDefaults())
			assert.Error(t, err)
		})
	}
}

func TestSeedSchedulesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	log := zaptest.NewLogger(t)

	schedules, err := ParseSeed([]byte(seedYAML), seedDefaults())
	require.NoError(t, err)
	created, err := SeedSchedules(ctx, repo, schedules, t0, log)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	interval, err := repo.GetByID(ctx, "22222222-2222-2222-2222-222222222222")
	require.NoError(t, err)
	require.NotNil(t, interval.NextRunAt)
	assert.True(t, t0.Add(15*time.Minute).Equal(*interval.NextRunAt))

	again, err := ParseSeed([]byte(seedYAML), seedDefaults())
	require.NoError(t, err)
	created, err = SeedSchedules(ctx, repo, again, t0.Add(time.Hour), log)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	active, err := repo.ListActiveSchedules(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	schedules, err := LoadSeedFile(path, seedDefaults())
	require.NoError(t, err)
	assert.Len(t, schedules, 3)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"), seedDefaults())
	assert.Error(t, err)
}

func TestLoadSeedFile_ShippedExample(t *testing.T) {
	schedules, err := LoadSeedFile(filepath.Join("..", "..", "config", "schedules.yaml"), seedDefaults())
	require.NoError(t, err)
	assert.NotEmpty(t, schedules)
}

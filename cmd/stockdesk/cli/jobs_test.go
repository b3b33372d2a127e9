package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/jobs"
)

func newTestCLI(t *testing.T) (*JobsCLI, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewJobsCLI(asynq.RedisClientOpt{Addr: mr.Addr()}, 5)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestTriggerEnqueuesKnownTasks(t *testing.T) {
	c, _ := newTestCLI(t)

	info, err := c.Trigger(context.Background(), jobs.TaskLowStockScan)
	require.NoError(t, err)
	assert.Equal(t, jobs.QueueDefault, info.Queue)

	var payload jobs.LowStockScanPayload
	require.NoError(t, json.Unmarshal(info.Payload, &payload))
	assert.Equal(t, 5, payload.Threshold)

	_, err = c.Trigger(context.Background(), "catalog:unknown")
	assert.Error(t, err)
}

func TestJobsCommand(t *testing.T) {
	c, _ := newTestCLI(t)
	ctx := context.Background()

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := c.JobsCommand(ctx, JobsOptions{Args: []string{"trigger", jobs.TaskLowStockScan}, Stdout: stdout, Stderr: stderr})
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "enqueued catalog:low-stock-scan on default")

	stdout.Reset()
	code = c.JobsCommand(ctx, JobsOptions{Args: []string{"trigger", jobs.TaskIndicatorWarmup}, JSONOutput: true, Stdout: stdout, Stderr: stderr})
	require.Equal(t, 0, code, stderr.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, jobs.TaskIndicatorWarmup, out["type"])
	assert.NotEmpty(t, out["id"])

	assert.Equal(t, 1, c.JobsCommand(ctx, JobsOptions{Args: []string{"trigger", "catalog:unknown"}, Stdout: stdout, Stderr: stderr}))
	assert.Equal(t, 2, c.JobsCommand(ctx, JobsOptions{Args: []string{"purge"}, Stdout: stdout, Stderr: stderr}))
	assert.Equal(t, 2, c.JobsCommand(ctx, JobsOptions{Stdout: stdout, Stderr: stderr}))
}

package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	panic bool
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

func TestRunNow(t *testing.T) {
	ok := &countingJob{name: "ok"}
	require.NoError(t, RunNow(context.Background(), ok))
	require.EqualValues(t, 1, ok.runs.Load())

	failing := &countingJob{name: "failing", err: errors.New("nope")}
	require.ErrorContains(t, RunNow(context.Background(), failing), "nope")

	panicking := &countingJob{name: "panicking", panic: true}
	require.ErrorContains(t, RunNow(context.Background(), panicking), "panic")
}

func TestAddJob(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{name: "cleanup"}
	require.Error(t, s.AddJob(job, "not a spec"))
	require.NoError(t, s.AddJob(job, "0 3 * * *"))
	require.Error(t, s.AddJob(job, "@hourly"))
	require.NoError(t, s.AddJob(&countingJob{name: "hourly"}, "@hourly"))

	s.Start(context.Background())
	defer s.Stop()
	next := s.Next("cleanup")
	require.False(t, next.IsZero())
	require.Equal(t, 3, next.Hour())
	require.True(t, next.After(time.Now()))
	require.True(t, s.Next("missing").IsZero())
}

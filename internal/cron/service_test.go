package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/chemtrack/labstock-backend/pkg/logger"
)

type fakeLock struct {
	held    bool
	refuse  bool
	acquire int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquire++
	if f.refuse || f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func newCronTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	healthy := &countingJob{name: "healthy"}
	broken := &countingJob{name: "broken", err: errors.New("boom")}
	service := newCronTestService(t, &fakeLock{}, healthy, broken)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if healthy.runs != 1 {
		t.Fatalf("healthy job ran %d times, want 1", healthy.runs)
	}
	if broken.runs != 1 {
		t.Fatalf("broken job ran %d times, want 1", broken.runs)
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "guarded"}
	lock := &fakeLock{refuse: true}
	service := newCronTestService(t, lock, job)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran while lock was held elsewhere")
	}
	if lock.acquire != 1 {
		t.Fatalf("expected one acquire attempt, got %d", lock.acquire)
	}
}

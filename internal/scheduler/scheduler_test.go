package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	calls atomic.Int32
	err   error
}

func (f *fakeGenerator) GenerateAllActive(context.Context) (int, error) {
	f.calls.Add(1)
	return 3, f.err
}

type fakeSweeper struct {
	grace time.Duration
}

func (f *fakeSweeper) SweepOverdue(_ context.Context, grace time.Duration) (int, error) {
	f.grace = grace
	return 2, nil
}

func TestNew_RequiresGenerator(t *testing.T) {
	_, err := New(Config{}, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestNew_RejectsInvalidSpec(t *testing.T) {
	_, err := New(Config{GenerationSpec: "every day"}, &fakeGenerator{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestSweepDisabledWithoutGrace(t *testing.T) {
	sw := &fakeSweeper{}
	s, err := New(Config{}, &fakeGenerator{}, sw, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{JobGenerate}, s.Jobs())

	n, err := s.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, sw.grace)
}

func TestSweepUsesConfiguredGrace(t *testing.T) {
	sw := &fakeSweeper{}
	s, err := New(Config{MissGrace: 2 * time.Hour}, &fakeGenerator{}, sw, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{JobGenerate, JobSweep}, s.Jobs())

	n, err := s.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2*time.Hour, sw.grace)
}

func TestRunJob_SurvivesErrors(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("db down")}
	s, err := New(Config{}, gen, nil, nil, nil)
	require.NoError(t, err)

	s.runJob(JobGenerate, s.RunGeneration)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestStartStop(t *testing.T) {
	s, err := New(Config{GenerationSpec: "@every 1h"}, &fakeGenerator{}, nil, nil, nil)
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  int
	version uint
	verErr  error
}

func (f *fakeMigrator) Up() error                    { return f.upErr }
func (f *fakeMigrator) Steps(n int) error            { f.steps = append(f.steps, n); return nil }
func (f *fakeMigrator) Force(v int) error            { f.forced = v; return nil }
func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, f.verErr }

func TestRunUpDefaultsAndToleratesNoChange(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&fakeMigrator{upErr: migrate.ErrNoChange}, nil, &out))
	assert.Contains(t, out.String(), "up to date")

	err := run(&fakeMigrator{upErr: errors.New("boom")}, []string{"up"}, &out)
	assert.ErrorContains(t, err, "boom")
}

func TestRunDownStepsBackOnce(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, run(m, []string{"down"}, &bytes.Buffer{}))
	assert.Equal(t, []int{-1}, m.steps)
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&fakeMigrator{version: 1}, []string{"version"}, &out))
	assert.Contains(t, out.String(), "version 1 (dirty=false)")

	out.Reset()
	require.NoError(t, run(&fakeMigrator{verErr: migrate.ErrNilVersion}, []string{"version"}, &out))
	assert.Contains(t, out.String(), "no migrations applied")
}

func TestRunForce(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, run(m, []string{"force", "1"}, &bytes.Buffer{}))
	assert.Equal(t, 1, m.forced)

	assert.Error(t, run(m, []string{"force"}, &bytes.Buffer{}))
	assert.Error(t, run(m, []string{"force", "x"}, &bytes.Buffer{}))
	assert.Error(t, run(m, []string{"sideways"}, &bytes.Buffer{}))
}

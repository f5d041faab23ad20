package deploy

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepFunc(name string, class Class, executed *[]string, err error) Step {
	return Step{Name: name, Class: class, Run: func(context.Context) error {
		*executed = append(*executed, name)
		return err
	}}
}

func TestRunSteps_Success(t *testing.T) {
	t.Parallel()
	var executed []string

	failures, err := RunSteps(context.Background(), logr.Discard(), []Step{
		stepFunc("a", Fatal, &executed, nil),
		stepFunc("b", Advisory, &executed, nil),
		stepFunc("c", Fatal, &executed, nil),
	})

	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Equal(t, []string{"a", "b", "c"}, executed)
}

func TestRunSteps_StopsOnFatalError(t *testing.T) {
	t.Parallel()
	var executed []string
	boom := errors.New("boom")

	_, err := RunSteps(context.Background(), logr.Discard(), []Step{
		stepFunc("a", Fatal, &executed, nil),
		stepFunc("b", Fatal, &executed, boom),
		stepFunc("c", Fatal, &executed, nil),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "b", FailedStep(err))
	assert.Equal(t, "b step failed: boom", err.Error())
	assert.Equal(t, []string{"a", "b"}, executed)
}

func TestRunSteps_ContinuesPastAdvisoryError(t *testing.T) {
	t.Parallel()
	var executed []string

	failures, err := RunSteps(context.Background(), logr.Discard(), []Step{
		stepFunc("a", Advisory, &executed, errors.New("flaky")),
		stepFunc("b", Fatal, &executed, nil),
	})

	require.NoError(t, err)
	assert.Equal(t, []StepFailure{{Step: "a", Error: "flaky"}}, failures)
	assert.Equal(t, []string{"a", "b"}, executed)
}

func TestRunSteps_Empty(t *testing.T) {
	t.Parallel()
	failures, err := RunSteps(context.Background(), logr.Discard(), nil)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestFailedStep_NotAStepError(t *testing.T) {
	t.Parallel()
	assert.Empty(t, FailedStep(errors.New("x")))
	assert.Empty(t, FailedStep(nil))
}

package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/squadfleet/internal/metrics"
)

// Class tells whether a step's failure aborts the run.
type Class string

const (
	Fatal    Class = "fatal"
	Advisory Class = "advisory"
)

// Step is one unit of a deployment.
type Step struct {
	Name  string
	Class Class
	Run   func(ctx context.Context) error
}

// StepFailure is an advisory step that failed.
type StepFailure struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// RunSteps executes steps sequentially. It stops at the first failing fatal
// step and returns a *StepError; failing advisory steps are logged and
// returned as failures.
func RunSteps(ctx context.Context, log logr.Logger, steps []Step) ([]StepFailure, error) {
	start := time.Now()
	var failures []StepFailure

	for i, step := range steps {
		stepStart := time.Now()
		name := fmt.Sprintf("%s (%d/%d)", step.Name, i+1, len(steps))

		log.V(1).Info("step starting", "step", name)

		if err := step.Run(ctx); err != nil {
			metrics.RecordStepFailure(step.Name, step.Class == Advisory)
			if step.Class == Advisory {
				log.Error(err, "advisory step failed, continuing", "step", name)
				failures = append(failures, StepFailure{Step: step.Name, Error: err.Error()})
				continue
			}
			log.Error(err, "step failed", "step", name)
			return failures, &StepError{Step: step.Name, Err: err}
		}

		log.V(1).Info("step completed", "step", name, "duration", time.Since(stepStart).Round(time.Millisecond))
	}

	log.V(1).Info("steps completed", "count", len(steps), "duration", time.Since(start).Round(time.Millisecond))
	return failures, nil
}

package service

import (
	"errors"
	"mend/internal/model"
)

type StepOutcome int

const (
	StepOK StepOutcome = iota
	StepDegraded
)

// StepResult is what each pipeline step reports back to the orchestrator.
type StepResult struct {
	Step    string
	Outcome StepOutcome
	Err     error
}

func stepOK(step string) StepResult {
	return StepResult{Step: step, Outcome: StepOK}
}

func stepDegraded(step string, err error) StepResult {
	return StepResult{Step: step, Outcome: StepDegraded, Err: err}
}

// finalStatus folds step results into the terminal status of the logged event.
// Hard failures never reach it: the handler returns an error and the event is marked failed.
func finalStatus(results []StepResult) (model.WebhookEventStatus, error) {
	status := model.WebhookStatusProcessed
	var errs []error
	for _, r := range results {
		if r.Outcome == StepDegraded {
			status = model.WebhookStatusPartial
		}
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return status, errors.Join(errs...)
}

package engine

import (
	"context"
	"fmt"

	"github.com/rowan/genbridge/internal/domain"
	"github.com/rowan/genbridge/internal/logger"
)

// Submit resolves the input list and submits one generation job.
//
// Image inputs resolve through the upload cache; every other kind passes
// through unchanged. Any failure before the backend assigns a job id aborts
// the submission with no store mutation. Once a job id exists, the job record
// is fetched and upserted immediately so the new job is visible without
// waiting for the next push event or poll tick; that seed fetch failing is
// logged but non-fatal. A full list refresh runs afterwards as a correctness
// backstop.
func (v *View) Submit(ctx context.Context, inputs []domain.Input) (string, error) {
	v.submitMu.Lock()
	defer v.submitMu.Unlock()

	if v.ctx.Err() != nil {
		return "", fmt.Errorf("workflow view closed")
	}

	resolved := make([]domain.RunInput, 0, len(inputs))
	for _, in := range inputs {
		if err := in.Validate(); err != nil {
			return "", err
		}
		value, err := v.resolveInput(ctx, in)
		if err != nil {
			return "", err
		}
		resolved = append(resolved, domain.RunInput{InputID: in.ID, Value: value})
	}

	jobID, err := v.backend.RunWorkflow(ctx, v.workflowID, resolved)
	if err != nil {
		return "", err
	}
	log := v.logger.WithField(logger.FieldJobID, jobID)
	log.Info("job submitted")

	// Seed the store before background sync takes over. The suspect scan in
	// apply schedules the delayed post-submission recheck when the record
	// already reads completed with no outputs.
	if job, err := v.backend.GetJob(ctx, jobID); err != nil {
		log.WithError(err).Warn("seed fetch after submission failed")
	} else {
		v.apply(*job, "seed")
	}

	go v.refresh("submit-backstop")

	return jobID, nil
}

// resolveInput prepares one input value for the run request. The switch is
// exhaustive over the closed input kind set.
func (v *View) resolveInput(ctx context.Context, in domain.Input) (any, error) {
	switch in.Kind {
	case domain.InputKindImage:
		value, err := v.uploads.Resolve(ctx, in.Value)
		if err != nil {
			return nil, fmt.Errorf("resolve input %q: %w", in.ID, err)
		}
		return value, nil
	case domain.InputKindText, domain.InputKindNumber, domain.InputKindToggle, domain.InputKindSelect:
		return in.Value, nil
	default:
		return nil, fmt.Errorf("input %q has unknown kind %q", in.ID, in.Kind)
	}
}

package usecase

import (
	"context"
	"encoding/json"

	"TriRecover/pkg/queue"
)

// BackfillJobType is the queue message type for assessment recomputation.
const BackfillJobType = "assessment.backfill"

type BackfillPayload struct {
	Dates []string `json:"dates"`
}

// BackfillJob recomputes and publishes assessments for a batch of dates,
// typically after an import or a cloud pull.
type BackfillJob struct {
	assessments *AssessmentService
}

func NewBackfillJob(assessments *AssessmentService) *BackfillJob {
	return &BackfillJob{assessments: assessments}
}

var _ queue.Job = (*BackfillJob)(nil)

func (j *BackfillJob) Name() string { return "assessment-backfill" }

func (j *BackfillJob) Type() string { return BackfillJobType }

func (j *BackfillJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.ParsePayload[BackfillPayload](payload)
	if err != nil {
		return err
	}
	return j.assessments.Publish(ctx, p.Dates...)
}

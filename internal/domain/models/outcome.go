package models

// Stage names used as keys of DataQualityReport.Stages.
const (
	StageSource  = "source"
	StageAmount  = "amount"
	StageOwner   = "owner"
	StageTicker  = "ticker"
	StageDates   = "dates"
	StageMember  = "member"
	StageLink    = "link"
	StagePersist = "persist"
)

// Outcome values for the link and persist stages.
const (
	OutcomeCreated   = "created"
	OutcomeExisting  = "existing"
	OutcomeTimeout   = "timeout"
	OutcomeSkipped   = "skipped"
	OutcomeInserted  = "inserted"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeMalformed = "malformed"
)

// RowOutcome records what each pipeline stage did with one row.
//
// It travels with the row from normalization through linking and persistence and is
// what the quality accountant aggregates.
type RowOutcome struct {
	Stages       map[string]string
	Attempted    []ResolutionMethod
	Reasons      []string
	AmountFixed  bool
	MalformedErr string
	Review       bool
}

// Set records the outcome of a stage.
func (o *RowOutcome) Set(stage, outcome string) {
	if o.Stages == nil {
		o.Stages = make(map[string]string, 8)
	}
	o.Stages[stage] = outcome
}

// AddReason appends a failure reason once.
func (o *RowOutcome) AddReason(reason string) {
	for _, r := range o.Reasons {
		if r == reason {
			return
		}
	}
	o.Reasons = append(o.Reasons, reason)
}

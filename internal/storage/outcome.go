package storage

// Outcome tells what happened to a submitted entity
type Outcome int

const (
	// Saved means the entity was written to the database
	Saved Outcome = iota
	// SavedDegraded means the submission flow completed but nothing was written
	SavedDegraded
	// Rejected means the submission failed validation and was never sent to the database
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case SavedDegraded:
		return "degraded"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ParseOutcome is the inverse of Outcome.String, ok is false for unknown values
func ParseOutcome(s string) (Outcome, bool) {
	for _, o := range []Outcome{Saved, SavedDegraded, Rejected} {
		if o.String() == s {
			return o, true
		}
	}
	return 0, false
}

// OutcomeOf converts result of a create call into Outcome
func OutcomeOf(err error) Outcome {
	if err != nil {
		return SavedDegraded
	}
	return Saved
}

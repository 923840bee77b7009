package ledger

// BlobOutcome describes what Load found under one key.
type BlobOutcome string

const (
	OutcomeLoaded      BlobOutcome = "loaded"
	OutcomeMissing     BlobOutcome = "missing"
	OutcomeMigrated    BlobOutcome = "migrated"
	OutcomeCorrupt     BlobOutcome = "corrupt"
	OutcomeUnavailable BlobOutcome = "unavailable"
)

type BlobReport struct {
	Blob     string      `json:"blob"`
	Outcome  BlobOutcome `json:"outcome"`
	Records  int         `json:"records"`
	Migrated int         `json:"migrated"`
	Skipped  int         `json:"skipped"`
	Err      error       `json:"-"`
}

// LoadReport is the per-blob result of Load.
type LoadReport struct {
	Accounts     BlobReport `json:"accounts"`
	Transactions BlobReport `json:"transactions"`
	Goals        BlobReport `json:"goals"`
	Profile      BlobReport `json:"userProfile"`
}

func (r *LoadReport) set(br BlobReport) {
	switch br.Blob {
	case BlobAccounts:
		r.Accounts = br
	case BlobTransactions:
		r.Transactions = br
	case BlobGoals:
		r.Goals = br
	case BlobProfile:
		r.Profile = br
	}
}

// Blobs returns the per-blob reports in a fixed order: accounts, transactions, goals, profile.
func (r *LoadReport) Blobs() []BlobReport {
	return []BlobReport{r.Accounts, r.Transactions, r.Goals, r.Profile}
}

// Degraded reports whether any blob fell back to its default because of an error.
func (r *LoadReport) Degraded() bool {
	for _, br := range r.Blobs() {
		if br.Outcome == OutcomeCorrupt || br.Outcome == OutcomeUnavailable {
			return true
		}
	}
	return false
}

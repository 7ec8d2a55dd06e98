package domain

// ImportReport summarizes one catalog CSV import. Warnings holds a capped
// sample; WarningCount is the full tally.
type ImportReport struct {
	TotalRows    int               `json:"totalRows"`
	Imported     int               `json:"imported"`
	Skipped      int               `json:"skipped"`
	WarningCount int               `json:"warningCount"`
	Warnings     []RowParseWarning `json:"warnings,omitempty"`
}

// AddWarning records a warning, keeping at most maxSamples in the report.
func (r *ImportReport) AddWarning(w RowParseWarning, maxSamples int) {
	r.WarningCount++
	if len(r.Warnings) < maxSamples {
		r.Warnings = append(r.Warnings, w)
	}
}

// MatchReport summarizes one matcher pass over a store's listings feed.
type MatchReport struct {
	Listings          int `json:"listings"`
	Created           int `json:"created"`
	Updated           int `json:"updated"`
	Unmatched         int `json:"unmatched"`
	TerminalPreserved int `json:"terminalPreserved"`
}

// AggregationReport summarizes one recommendation computation run.
type AggregationReport struct {
	Products        int `json:"products"`
	Emitted         int `json:"emitted"`
	NoCompetitors   int `json:"noCompetitors"`
	CurrencySkipped int `json:"currencySkipped"`
	InvalidProducts int `json:"invalidProducts"`
}

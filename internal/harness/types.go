package harness

import "github.com/roach88/goalctl/internal/testutil"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace has one line per step and outcome, with the store mutations
	// each step made indented between them. Golden files compare it.
	Trace []string `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Store holds the final data and every recorded call.
	Store *testutil.RecordingStore `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(st *testutil.RecordingStore) *Result {
	return &Result{
		Pass:   true,
		Trace:  []string{},
		Errors: []string{},
		Store:  st,
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a line to the trace.
func (r *Result) AddTrace(line string) {
	r.Trace = append(r.Trace, line)
}

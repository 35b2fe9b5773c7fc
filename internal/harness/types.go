package harness

import "github.com/roach88/minq/internal/ir"

// Output records one executed step for reports and golden comparison.
type Output struct {
	// Step is the zero-based index into Scenario.Steps.
	Step int `json:"step"`

	// Query is the query name, or "" for a mutation.
	Query string `json:"query,omitempty"`

	// Mutation describes a mutate step, e.g. "set body.ty".
	Mutation string `json:"mutation,omitempty"`

	// Value is the query result: an array, or the group table for grouped
	// documents.
	Value ir.IRValue `json:"value,omitempty"`

	// Error is the execution error message, if any.
	Error string `json:"error,omitempty"`

	// Calls is the number of backend port calls the query made.
	Calls int `json:"calls"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	Outputs []Output `json:"outputs"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Outputs: []Output{},
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddOutput records one executed step.
func (r *Result) AddOutput(o Output) {
	r.Outputs = append(r.Outputs, o)
}

package harness

// TraceEvent records one built expression.
type TraceEvent struct {
	Name      string `json:"name"`
	Expr      string `json:"expr"`
	Canonical string `json:"canonical,omitempty"`

	// Truth is the hex word of the result under ExhaustiveInputs, set when
	// the tree has at most six entries.
	Truth string `json:"truth,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expression matched its source and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per expression, in build order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Groups is the number of live groups in the finished tree.
	Groups int `json:"groups"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

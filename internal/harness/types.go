package harness

// Result is the outcome of running one scenario.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass indicates every expectation matched.
	Pass bool `json:"pass"`

	// Template and Args are the compiled fragment. Both are empty when
	// compilation failed.
	Template string `json:"template"`
	Args     []any  `json:"args"`

	// Error is the kind of the error the scenario produced, if any: a
	// compile error code, DECODE_ERROR or WILDCARD_REMOVE.
	Error string `json:"error,omitempty"`

	// Message is the full error text.
	Message string `json:"message,omitempty"`

	// Warnings are the portability warnings for the final condition.
	Warnings []string `json:"warnings,omitempty"`

	// Rows holds the query result when the scenario has a database.
	Rows []map[string]any `json:"rows,omitempty"`

	// Errors contains expectation mismatches. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Args:   []any{},
		Errors: []string{},
	}
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

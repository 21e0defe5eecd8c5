package harness

// Snapshot is the normalized view after one step.
type Snapshot struct {
	Step  int    `json:"step"`
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Snapshots holds the view after the start (step 0) and after each
	// step.
	Snapshots []Snapshot `json:"snapshots"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Snapshots: []Snapshot{},
		Errors:    []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddSnapshot records the view after a step.
func (r *Result) AddSnapshot(step int, label string, value any) {
	r.Snapshots = append(r.Snapshots, Snapshot{Step: step, Label: label, Value: value})
}

// Final returns the last snapshot's value, or nil before the first one.
func (r *Result) Final() any {
	if len(r.Snapshots) == 0 {
		return nil
	}
	return r.Snapshots[len(r.Snapshots)-1].Value
}

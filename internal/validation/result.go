package validation

// Result contains the overall validation result.
type Result struct {
	IsCropCorrect     bool
	IsDurationCorrect bool

	ActualDimensions   *[2]uint32
	ExpectedDimensions *[2]uint32
	CropMessage        string

	ActualDuration   *float64
	ExpectedDuration *float64
	DurationMessage  string
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// IsValid returns true if all validation checks passed.
func (r *Result) IsValid() bool {
	return r.IsCropCorrect && r.IsDurationCorrect
}

// GetValidationSteps returns all validation steps with results.
func (r *Result) GetValidationSteps() []ValidationStep {
	return []ValidationStep{
		{
			Name:    "Output dimensions",
			Passed:  r.IsCropCorrect,
			Details: r.CropMessage,
		},
		{
			Name:    "Output duration",
			Passed:  r.IsDurationCorrect,
			Details: r.DurationMessage,
		},
	}
}

// GetFailures returns descriptions of failed validation checks.
func (r *Result) GetFailures() []string {
	var failures []string
	for _, step := range r.GetValidationSteps() {
		if !step.Passed {
			failures = append(failures, step.Name+": "+step.Details)
		}
	}
	return failures
}

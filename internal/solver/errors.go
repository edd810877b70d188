package solver

import (
	"fmt"
	"time"
)

// Dimension identifies the constraint family implicated in a failure.
type Dimension string

const (
	DimensionClass    Dimension = "CLASS"
	DimensionTeacher  Dimension = "TEACHER"
	DimensionCoverage Dimension = "COVERAGE"
	DimensionLoad     Dimension = "LOAD"
)

// Diagnosis pinpoints which class, teacher, or subject made a solve fail.
type Diagnosis struct {
	Dimension Dimension `json:"dimension"`
	ClassID   string    `json:"class_id,omitempty"`
	TeacherID string    `json:"teacher_id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Detail    string    `json:"detail"`
}

// ConfigurationError reports a structural impossibility detected before
// any search begins.
type ConfigurationError struct {
	Diagnosis Diagnosis
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Diagnosis.Detail)
}

// InfeasibleError reports that the search space was exhausted without a
// satisfying assignment.
type InfeasibleError struct {
	Diagnosis Diagnosis
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("infeasible: %s", e.Diagnosis.Detail)
}

// TimeoutError reports that the search bound was exceeded. Unlike
// InfeasibleError it proves nothing about the existence of a solution.
type TimeoutError struct {
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("search timed out after %s", e.Elapsed)
}

// RotationError reports that a rotation week could not be validated even
// after the solver fallback.
type RotationError struct {
	Week  int
	Cause error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("rotation week %d could not be validated: %v", e.Week, e.Cause)
}

func (e *RotationError) Unwrap() error {
	return e.Cause
}

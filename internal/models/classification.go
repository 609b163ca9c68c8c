package models

import "fmt"

// FailureReason classifies why a single categorization attempt did not produce a label.
type FailureReason string

const (
	FailureMissingCredential FailureReason = "missing_credential"
	FailureEmptyDescription  FailureReason = "empty_description"
	FailureCircuitOpen       FailureReason = "circuit_open"
	FailureTransport         FailureReason = "transport"
	FailureTimeout           FailureReason = "timeout"
	FailureHTTPStatus        FailureReason = "http_status"
	FailureMalformedResponse FailureReason = "malformed_response"
	FailureUnknownLabel      FailureReason = "unknown_label"
)

// ClassificationOutcome is either a label or a failure reason with its cause.
type ClassificationOutcome struct {
	Label  CategoryLabel
	Reason FailureReason
	Err    error
}

func ClassificationSuccess(label CategoryLabel) ClassificationOutcome {
	return ClassificationOutcome{Label: label}
}

func ClassificationFailure(reason FailureReason, err error) ClassificationOutcome {
	return ClassificationOutcome{Reason: reason, Err: err}
}

func (o ClassificationOutcome) Succeeded() bool {
	return o.Reason == "" && o.Label != ""
}

// LabelOrOther collapses a failed outcome to the Other label.
func (o ClassificationOutcome) LabelOrOther() CategoryLabel {
	if o.Succeeded() {
		return o.Label
	}
	return CategoryOther
}

func (o ClassificationOutcome) String() string {
	if o.Succeeded() {
		return fmt.Sprintf("success(%s)", o.Label)
	}
	if o.Err != nil {
		return fmt.Sprintf("failure(%s: %v)", o.Reason, o.Err)
	}
	return fmt.Sprintf("failure(%s)", o.Reason)
}

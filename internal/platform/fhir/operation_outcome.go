package fhir

import "fmt"

// OperationOutcome severity levels per FHIR R4 spec.
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// OperationOutcome issue type codes per FHIR R4 spec.
const (
	IssueTypeInvalid      = "invalid"
	IssueTypeRequired     = "required"
	IssueTypeNotFound     = "not-found"
	IssueTypeProcessing   = "processing"
	IssueTypeThrottled    = "throttled"
	IssueTypeNotSupported = "not-supported"
	IssueTypeException    = "exception"
	IssueTypeTimeout      = "timeout"
	IssueTypeTransient    = "transient"
)

// OperationOutcome represents a FHIR OperationOutcome for errors.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{
				Severity:    severity,
				Code:        code,
				Diagnostics: diagnostics,
			},
		},
	}
}

func ErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeProcessing, diagnostics)
}

// NotSupportedOutcome is returned for resource types the gateway does not serve.
func NotSupportedOutcome(resourceType string) *OperationOutcome {
	return NewOperationOutcome(
		IssueSeverityError,
		IssueTypeNotSupported,
		fmt.Sprintf("resource type %s is not supported", resourceType),
	)
}

// UpstreamOutcome reports a failure talking to the source registry.
func UpstreamOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeTransient, diagnostics)
}

// TimeoutOutcome reports that the request deadline expired.
func TimeoutOutcome() *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeTimeout, "request timed out")
}

// InternalErrorOutcome creates an OperationOutcome for internal server errors.
func InternalErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityFatal, IssueTypeException, diagnostics)
}

// HasErrors returns true if the outcome contains any error or fatal issues.
func (o *OperationOutcome) HasErrors() bool {
	for _, issue := range o.Issue {
		if issue.Severity == IssueSeverityError || issue.Severity == IssueSeverityFatal {
			return true
		}
	}
	return false
}

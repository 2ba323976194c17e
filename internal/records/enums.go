package records

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BatchStatus is the QA disposition of a batch.
type BatchStatus int

const (
	BatchUnknown BatchStatus = iota
	BatchPass
	BatchFail
)

func (s BatchStatus) String() string {
	switch s {
	case BatchPass:
		return "Pass"
	case BatchFail:
		return "Fail"
	case BatchUnknown:
		return "Unknown"
	}
	return "Unknown"
}

func ParseBatchStatus(v string) BatchStatus {
	switch strings.TrimSpace(v) {
	case "Pass":
		return BatchPass
	case "Fail":
		return BatchFail
	default:
		return BatchUnknown
	}
}

func (s *BatchStatus) UnmarshalJSON(data []byte) error {
	raw, err := enumString(data)
	if err != nil {
		return fmt.Errorf("batch status: %w", err)
	}
	*s = ParseBatchStatus(raw)
	return nil
}

func (s BatchStatus) MarshalJSON() ([]byte, error) { return enumJSON(s.String(), s == BatchUnknown) }

// StockStatus is the release state of an inventory lot.
type StockStatus int

const (
	StockUnknown StockStatus = iota
	StockReleased
	StockBlocked
)

func (s StockStatus) String() string {
	switch s {
	case StockReleased:
		return "Released"
	case StockBlocked:
		return "Blocked"
	case StockUnknown:
		return "Unknown"
	}
	return "Unknown"
}

func ParseStockStatus(v string) StockStatus {
	switch strings.TrimSpace(v) {
	case "Released":
		return StockReleased
	case "Blocked":
		return StockBlocked
	default:
		return StockUnknown
	}
}

func (s *StockStatus) UnmarshalJSON(data []byte) error {
	raw, err := enumString(data)
	if err != nil {
		return fmt.Errorf("stock status: %w", err)
	}
	*s = ParseStockStatus(raw)
	return nil
}

func (s StockStatus) MarshalJSON() ([]byte, error) { return enumJSON(s.String(), s == StockUnknown) }

// SubmissionStatus is the regulatory state of a submission.
type SubmissionStatus int

const (
	SubmissionUnknown SubmissionStatus = iota
	SubmissionPending
	SubmissionApproved
)

func (s SubmissionStatus) String() string {
	switch s {
	case SubmissionPending:
		return "Pending"
	case SubmissionApproved:
		return "Approved"
	case SubmissionUnknown:
		return "Unknown"
	}
	return "Unknown"
}

func ParseSubmissionStatus(v string) SubmissionStatus {
	switch strings.TrimSpace(v) {
	case "Pending":
		return SubmissionPending
	case "Approved":
		return SubmissionApproved
	default:
		return SubmissionUnknown
	}
}

func (s *SubmissionStatus) UnmarshalJSON(data []byte) error {
	raw, err := enumString(data)
	if err != nil {
		return fmt.Errorf("submission status: %w", err)
	}
	*s = ParseSubmissionStatus(raw)
	return nil
}

func (s SubmissionStatus) MarshalJSON() ([]byte, error) {
	return enumJSON(s.String(), s == SubmissionUnknown)
}

// Severity grades a quality deviation.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityCritical
	SeverityMajor
	SeverityMinor
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityMajor:
		return "Major"
	case SeverityMinor:
		return "Minor"
	case SeverityUnknown:
		return "Unknown"
	}
	return "Unknown"
}

func ParseSeverity(v string) Severity {
	switch strings.TrimSpace(v) {
	case "Critical":
		return SeverityCritical
	case "Major":
		return SeverityMajor
	case "Minor":
		return SeverityMinor
	default:
		return SeverityUnknown
	}
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	raw, err := enumString(data)
	if err != nil {
		return fmt.Errorf("severity: %w", err)
	}
	*s = ParseSeverity(raw)
	return nil
}

func (s Severity) MarshalJSON() ([]byte, error) { return enumJSON(s.String(), s == SeverityUnknown) }

// enumString accepts a JSON string or null; null decodes as "".
func enumString(data []byte) (string, error) {
	if string(data) == "null" {
		return "", nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", err
	}
	return raw, nil
}

func enumJSON(name string, unknown bool) ([]byte, error) {
	if unknown {
		return []byte("null"), nil
	}
	return json.Marshal(name)
}

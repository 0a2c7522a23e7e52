package enums

import "fmt"

// ValidationStatus is the review state of a submitted payment proof.
type ValidationStatus string

const (
	ValidationStatusPending  ValidationStatus = "pending"
	ValidationStatusApproved ValidationStatus = "approved"
	ValidationStatusRejected ValidationStatus = "rejected"
)

var validValidationStatuses = []ValidationStatus{
	ValidationStatusPending,
	ValidationStatusApproved,
	ValidationStatusRejected,
}

func (v ValidationStatus) String() string {
	return string(v)
}

func (v ValidationStatus) IsValid() bool {
	for _, candidate := range validValidationStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsDecided reports whether an administrator already ruled on the proof.
func (v ValidationStatus) IsDecided() bool {
	return v == ValidationStatusApproved || v == ValidationStatusRejected
}

func ParseValidationStatus(value string) (ValidationStatus, error) {
	for _, candidate := range validValidationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid validation status %q", value)
}

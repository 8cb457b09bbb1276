package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a value that failed the injection screen.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if a SQL injection pattern was detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Value       any    // The value that was checked
}

// CheckValue screens a single value for SQL injection patterns before it is
// bound as a query parameter. Only strings are checked; numbers and booleans
// cannot carry injection payloads and return nil.
func CheckValue(value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			Value:       value,
		}
	}
	return nil
}

// FilterSafeValues returns values with injection-flagged strings removed,
// plus the check results for everything that was dropped.
func FilterSafeValues(values []any) ([]any, []*InjectionCheckResult) {
	safe := make([]any, 0, len(values))
	var flagged []*InjectionCheckResult
	for _, v := range values {
		if result := CheckValue(v); result != nil {
			flagged = append(flagged, result)
			continue
		}
		safe = append(safe, v)
	}
	return safe, flagged
}

package provider

import (
	"encoding/json"
	"strings"
)

// enrollmentErrorPrefix is the code namespace the provider uses for errors
// that mean the bank linkage itself is broken, as opposed to a transient
// failure.
const enrollmentErrorPrefix = "enrollment."

// ErrorInfo is the structured error descriptor extracted from a provider
// response body.
type ErrorInfo struct {
	Code    string
	Message string
}

// Error is a classified provider failure. Callers branch on Code to decide
// remediation (for example the enrollment.* namespace).
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return "provider: " + e.Message
	}
	return "provider: " + e.Code + ": " + e.Message
}

// IsEnrollmentFailure reports whether the error's code falls in the
// enrollment-failure namespace.
func (e *Error) IsEnrollmentFailure() bool {
	return strings.HasPrefix(e.Code, enrollmentErrorPrefix)
}

// errorEnvelope matches the provider's error body shape. Code is optional.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Classify inspects a raw response body and extracts a structured error
// descriptor when the body matches the provider's error shape. It returns
// nil for anything else — malformed bodies, success payloads, arrays — and
// never fails itself: it runs on every response, success or failure.
func Classify(body []byte) *ErrorInfo {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	if env.Error == nil || env.Error.Message == "" {
		return nil
	}
	return &ErrorInfo{Code: env.Error.Code, Message: env.Error.Message}
}

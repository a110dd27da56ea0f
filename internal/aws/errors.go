package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// ErrorCode returns the service error code carried by err, or "" when err
// did not come from an AWS API.
func ErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

// IsThrottle reports whether err is a throttling or capacity error.
func IsThrottle(err error) bool {
	switch ErrorCode(err) {
	case "ThrottlingException", "ProvisionedThroughputExceededException",
		"RequestLimitExceeded", "RequestThrottled":
		return true
	}
	return false
}

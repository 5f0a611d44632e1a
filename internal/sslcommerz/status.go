package sslcommerz

// MapValidationStatus translates a transaction validation status. Anything the
// gateway reports for a callback that failed verification is an error.
func MapValidationStatus(status string, verified bool) Status {
	if !verified {
		return StatusError
	}
	switch status {
	case "VALID", "VALIDATED":
		return StatusApproved
	case "FAILED":
		return StatusDeclined
	default:
		return StatusError
	}
}

func MapRefundStatus(status string) Status {
	switch status {
	case "success", "refunded":
		return StatusRefunded
	case "processing":
		return StatusPending
	case "cancelled":
		return StatusReturned
	default:
		return StatusError
	}
}

// Acceptable is the audit flag logged alongside gateway responses.
func Acceptable(s Status) bool {
	return s != StatusError
}

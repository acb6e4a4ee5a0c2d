package eligibility

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonAlreadyCheckedIn  Reason = "ALREADY_CHECKED_IN"
	ReasonAlreadyCheckedOut Reason = "ALREADY_CHECKED_OUT"
	ReasonInvalidStatus     Reason = "INVALID_STATUS"
	ReasonTooLate           Reason = "TOO_LATE"
	ReasonNotCheckedIn      Reason = "NOT_CHECKED_IN"
	ReasonAlreadyCompleted  Reason = "ALREADY_COMPLETED"
	ReasonUnknownStatus     Reason = "UNKNOWN_STATUS"
	ReasonInvalidSchedule   Reason = "INVALID_SCHEDULE"
)

// Result is the verdict for a single check-in or check-out decision.
// Error is a blocking message; WarningMessage is advisory and only set when
// IsValid is true.
type Result struct {
	IsValid        bool   `json:"isValid"`
	Reason         Reason `json:"reason,omitempty"`
	Error          string `json:"error,omitempty"`
	WarningMessage string `json:"warningMessage,omitempty"`
}

func (r Result) HasWarning() bool {
	return r.IsValid && r.WarningMessage != ""
}

func valid() Result {
	return Result{IsValid: true}
}

func warn(message string) Result {
	return Result{IsValid: true, WarningMessage: message}
}

func fail(reason Reason, message string) Result {
	return Result{Reason: reason, Error: message}
}

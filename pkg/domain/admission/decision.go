package admission

import "time"

type Reason string

const (
	ReasonAdmitted               Reason = "admitted"
	ReasonInvalidRequest         Reason = "invalid_request"
	ReasonMalformedRequest       Reason = "malformed_request"
	ReasonBurstLimitExceeded     Reason = "burst_limit_exceeded"
	ReasonSustainedLimitExceeded Reason = "sustained_limit_exceeded"
	ReasonInternalError          Reason = "internal_error"
)

var reasonMessages = map[Reason]string{
	ReasonAdmitted:               "Input passed all security checks",
	ReasonInvalidRequest:         "Invalid request format",
	ReasonMalformedRequest:       "Malformed request",
	ReasonBurstLimitExceeded:     "Burst limit exceeded",
	ReasonSustainedLimitExceeded: "Rate limit exceeded",
	ReasonInternalError:          "Internal error",
}

// confidence is informational only, nothing branches on it.
var reasonConfidence = map[Reason]float64{
	ReasonAdmitted:               0.95,
	ReasonInvalidRequest:         0.99,
	ReasonMalformedRequest:       0.99,
	ReasonBurstLimitExceeded:     0.99,
	ReasonSustainedLimitExceeded: 0.98,
	ReasonInternalError:          0.99,
}

func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

func (r Reason) Confidence() float64 {
	return reasonConfidence[r]
}

type Decision struct {
	Blocked         bool
	Reason          Reason
	RetryAfter      time.Duration
	Confidence      float64
	SanitizedOutput *string
}

func Admit(input string) Decision {
	return Decision{
		Blocked:         false,
		Reason:          ReasonAdmitted,
		Confidence:      ReasonAdmitted.Confidence(),
		SanitizedOutput: &input,
	}
}

func Block(reason Reason, retryAfter time.Duration) Decision {
	return Decision{
		Blocked:    true,
		Reason:     reason,
		RetryAfter: retryAfter,
		Confidence: reason.Confidence(),
	}
}

// RetryAfterSeconds rounds up so callers never retry before the window clears.
func (d Decision) RetryAfterSeconds() int {
	if !d.Blocked || d.RetryAfter <= 0 {
		return 0
	}
	secs := d.RetryAfter / time.Second
	if d.RetryAfter%time.Second != 0 {
		secs++
	}
	return int(secs)
}

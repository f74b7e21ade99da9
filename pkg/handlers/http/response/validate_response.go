package response

import "github.com/NeuralTrust/TrustGuard/pkg/domain/admission"

type ValidateResponse struct {
	Blocked         bool    `json:"blocked"`
	Reason          string  `json:"reason"`
	SanitizedOutput *string `json:"sanitizedOutput"`
	Confidence      float64 `json:"confidence"`
}

func NewValidateResponse(d admission.Decision) ValidateResponse {
	out := ValidateResponse{
		Blocked:    d.Blocked,
		Reason:     d.Reason.Message(),
		Confidence: d.Confidence,
	}
	if !d.Blocked {
		out.SanitizedOutput = d.SanitizedOutput
	}
	return out
}

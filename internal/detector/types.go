// File: internal/detector/types.go
package detector

// OCRVerification reports the outcome of the service's secondary text check
// on the detected region.
type OCRVerification string

const (
	OCRMatch    OCRVerification = "match"
	OCRMismatch OCRVerification = "mismatch"
	OCRNone     OCRVerification = "none"
)

// DetectionRequest describes one localization request against the remote
// visual-grounding service. Iterations bounds refinement passes on the remote
// side, not client retries.
type DetectionRequest struct {
	Image       []byte
	Description string
	Context     string
	Iterations  int
}

// DetectionResult is the parsed response of one detection call. When Found is
// false the coordinate and confidence fields are meaningless and callers must
// not act on them.
type DetectionResult struct {
	Found           bool
	X               int
	Y               int
	Confidence      *float64
	Method          string
	OCRVerification OCRVerification
	Elapsed         float64
}

// detectPayload is the wire form of a detection request.
type detectPayload struct {
	Image       string `json:"image"`
	Description string `json:"description"`
	Context     string `json:"context,omitempty"`
	Iterations  int    `json:"iterations"`
}

// detectResponse is the wire form of the service's answer. Coordinates and
// confidence are pointers because the service omits them on a miss.
type detectResponse struct {
	Found           bool     `json:"found"`
	X               *float64 `json:"x,omitempty"`
	Y               *float64 `json:"y,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
	Method          string   `json:"method"`
	OCRVerification string   `json:"ocr_verification,omitempty"`
	TimeSeconds     float64  `json:"time_seconds"`
}

// toResult converts a wire response into the public DetectionResult.
func (r *detectResponse) toResult() DetectionResult {
	res := DetectionResult{
		Found:           r.Found,
		Method:          r.Method,
		OCRVerification: OCRNone,
		Elapsed:         r.TimeSeconds,
	}
	switch OCRVerification(r.OCRVerification) {
	case OCRMatch:
		res.OCRVerification = OCRMatch
	case OCRMismatch:
		res.OCRVerification = OCRMismatch
	}
	if r.Found {
		if r.X != nil {
			res.X = int(*r.X)
		}
		if r.Y != nil {
			res.Y = int(*r.Y)
		}
		res.Confidence = r.Confidence
	}
	return res
}

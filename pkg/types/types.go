package types

// Detail levels recognized by vision providers. They control analysis depth
// and token cost per image. Unknown values are passed through unchanged.
const (
	DetailLow  = "low"
	DetailHigh = "high"
	DetailAuto = "auto"
)

// PayloadKind distinguishes direct URL references from inline base64 data.
type PayloadKind string

const (
	PayloadURL    PayloadKind = "url"
	PayloadInline PayloadKind = "inline"
)

// ImagePayload is a normalized image reference ready for transmission:
// either a remote URL passed through verbatim, or the base64-encoded
// contents of a local file together with its media type.
type ImagePayload struct {
	Kind      PayloadKind `json:"kind"`
	URL       string      `json:"url,omitempty"`
	MediaType string      `json:"media_type,omitempty"`
	Data      string      `json:"data,omitempty"`
	Detail    string      `json:"detail,omitempty"`
}

// Ref renders the provider-ready reference: the URL itself for remote
// payloads, a data URI for inline ones.
func (p ImagePayload) Ref() string {
	if p.Kind == PayloadInline {
		return "data:" + p.MediaType + ";base64," + p.Data
	}
	return p.URL
}

// AnalysisResult is the normalized outcome of one analysis call. Exactly one
// branch is populated: the analysis fields when Success is true, Error
// otherwise. Callers branch on Success instead of handling errors.
type AnalysisResult struct {
	Success          bool   `json:"success"`
	Analysis         string `json:"analysis,omitempty"`
	Model            string `json:"model,omitempty"`
	TotalTokens      int    `json:"total_tokens,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	Error            string `json:"error,omitempty"`
}

package relay

import "strings"

// ErrorKind is the category of a failed upstream call.
type ErrorKind int

const (
	// KindUpstream is any failure not recognised below. Terminal.
	KindUpstream ErrorKind = iota
	// KindRateLimited is a transient rate limit. Retried with backoff.
	KindRateLimited
	// KindQuotaExhausted means the credential cannot serve requests until
	// billing or a quota reset. Terminal.
	KindQuotaExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExhausted:
		return "quota_exhausted"
	default:
		return "upstream_error"
	}
}

// Classify maps raw upstream error text to an ErrorKind.
//
// Matching is on substrings of the two providers' error messages (OpenAI
// "429 ... rate limit"/"insufficient_quota", Gemini "429 ... RESOURCE_EXHAUSTED").
// A provider changing its wording falls through to KindUpstream.
// Rate limit markers are checked first, so a 429 that mentions quota is
// still retried.
func Classify(raw string) ErrorKind {
	if strings.Contains(raw, "429") ||
		strings.Contains(raw, "Rate limit") ||
		strings.Contains(raw, "RESOURCE_EXHAUSTED") {
		return KindRateLimited
	}
	if strings.Contains(raw, "insufficient_quota") ||
		strings.Contains(strings.ToLower(raw), "quota") {
		return KindQuotaExhausted
	}
	return KindUpstream
}

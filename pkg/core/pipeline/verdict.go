package pipeline

import (
	"regexp"
	"strings"

	"finanalysis/pkg/core/utils"
)

type ratingPayload struct {
	Rating     string `json:"rating"`
	Conviction string `json:"conviction"`
}

// ratingLine matches an explicit "Rating: X" style statement. Checked before
// the bare keyword scan so prose around it cannot override the stated rating.
var ratingLine = regexp.MustCompile(`(?i)\brating\b\s*[:\-]?\s*\**\s*(STRONG\s+BUY|STRONG\s+SELL|BUY|SELL|HOLD)\b`)

// ratingScan matches bare ratings on word boundaries, ordered so STRONG BUY
// wins over BUY and compounds like "buyback" never match.
var ratingScan = []struct {
	re  *regexp.Regexp
	raw string
}{
	{regexp.MustCompile(`(?i)\bSTRONG\s+BUY\b`), "STRONG BUY"},
	{regexp.MustCompile(`(?i)\bSTRONG\s+SELL\b`), "STRONG SELL"},
	{regexp.MustCompile(`(?i)\bBUY\b`), "BUY"},
	{regexp.MustCompile(`(?i)\bSELL\b`), "SELL"},
	{regexp.MustCompile(`(?i)\bHOLD\b`), "HOLD"},
}

// parseVerdict pulls the rating out of the Recommendation stage output. It
// prefers the JSON block the prompt asks for, then an explicit rating line,
// then a word-boundary keyword scan, then defaults to HOLD.
func parseVerdict(output string) Verdict {
	var payload ratingPayload
	if _, err := utils.SmartParse(output, &payload); err == nil && payload.Rating != "" {
		return Verdict{
			Rating:     normalizeRating(payload.Rating),
			RawRating:  strings.ToUpper(strings.TrimSpace(payload.Rating)),
			Conviction: titleCase(payload.Conviction),
		}
	}

	if m := ratingLine.FindStringSubmatch(output); m != nil {
		raw := canonicalRating(m[1])
		return Verdict{Rating: normalizeRating(raw), RawRating: raw}
	}

	for _, candidate := range ratingScan {
		if candidate.re.MatchString(output) {
			return Verdict{Rating: normalizeRating(candidate.raw), RawRating: candidate.raw}
		}
	}

	return Verdict{Rating: "HOLD", RawRating: "HOLD"}
}

// canonicalRating collapses case and internal whitespace of a matched rating.
func canonicalRating(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// normalizeRating collapses the five-point model scale to BUY, HOLD, or SELL.
func normalizeRating(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "STRONG BUY", "BUY":
		return "BUY"
	case "STRONG SELL", "SELL":
		return "SELL"
	default:
		return "HOLD"
	}
}

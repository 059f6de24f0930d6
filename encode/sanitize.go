package encode

import "strings"

// sanitizeText strips control characters and truncates to maxLen bytes,
// mirroring the original SpecUtils behavior of cleaning Title/Remarks
// immediately before they are written into a format's fixed-width or
// line-oriented fields (PCF title: 60 chars, CHN: 63 chars) rather than
// mutating the in-memory Measurement. Mid-string control characters are
// dropped rather than replaced, since every target format here is
// plain-text or a fixed-width ASCII record with no escaping convention
// for them.
func sanitizeText(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}

package extraction

import "strings"

// Line prefixes recognised in sectioned responses. Matching is exact and
// case-sensitive after trimming the line.
const (
	ValuePrefix   = "Value:"
	SectionPrefix = "Section:"
)

// Fragment is the parsed part of an agent response.
type Fragment struct {
	Value      string
	Section    string
	Confidence Confidence
}

// ParseSectioned reads "Value:" and "Section:" lines from text. The last
// occurrence of each prefix wins. A missing prefix falls back to its sentinel
// independently; a prefix with nothing after it yields "". It never fails.
func ParseSectioned(text string) Fragment {
	f := Fragment{Value: NotSpecified, Section: NotFound}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if v, ok := cutPrefix(line, ValuePrefix); ok {
			f.Value = v
		} else if s, ok := cutPrefix(line, SectionPrefix); ok {
			f.Section = s
		}
	}
	return f
}

// cutPrefix returns the trimmed remainder after prefix. The remainder may be
// empty.
func cutPrefix(line, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	return strings.TrimSpace(rest), ok
}

// ParseBare takes the whole trimmed response as the value and derives a
// confidence from it.
func ParseBare(text string) Fragment {
	v := strings.TrimSpace(text)
	if v == "" {
		v = NotSpecified
	}
	return Fragment{Value: v, Confidence: confidenceOf(v)}
}

func confidenceOf(value string) Confidence {
	if strings.Contains(strings.ToLower(value), strings.ToLower(NotSpecified)) {
		return Low
	}
	return High
}

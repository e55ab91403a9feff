package rule

import "fmt"

// ParseError reports malformed rule text: a missing or unrecognized
// frequency, an unparsable value for a known key, or mutually exclusive
// keys both present. Unknown keys never cause a ParseError; they are
// skipped for forward compatibility.
type ParseError struct {
	Text   string // the offending rule text
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse recurrence rule %q: %s", e.Text, e.Reason)
}

// InvalidRuleError reports a semantic violation in a structurally valid
// rule, such as a count below 1 or an until bound preceding the series
// start.
type InvalidRuleError struct {
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return "invalid recurrence rule: " + e.Reason
}

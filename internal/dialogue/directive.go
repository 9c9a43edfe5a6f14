package dialogue

import "strings"

type DirectiveKind string

const (
	CheckSlots  DirectiveKind = "CHECK_SLOTS"
	Book        DirectiveKind = "BOOK"
	CallManager DirectiveKind = "CALL_MANAGER"
)

const directivePrefix = "TOOL:"

// checked in this order; the first one present wins
var directiveOrder = []struct {
	kind   DirectiveKind
	marker string
}{
	{CheckSlots, directivePrefix + string(CheckSlots) + ":"},
	{Book, directivePrefix + string(Book) + ":"},
	{CallManager, directivePrefix + string(CallManager)},
}

type Directive struct {
	Kind DirectiveKind
	// Payload is the text after the marker up to the next newline, trimmed.
	Payload string
}

// ParseDirective looks for a tool directive anywhere in the model output.
// Model output is not trusted; callers must validate the payload.
func ParseDirective(text string) (Directive, bool) {
	for _, d := range directiveOrder {
		i := strings.Index(text, d.marker)
		if i < 0 {
			continue
		}

		rest := text[i+len(d.marker):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		return Directive{Kind: d.kind, Payload: strings.TrimSpace(rest)}, true
	}
	return Directive{}, false
}

// Fields splits a BOOK payload on pipes.
func (d Directive) Fields() []string {
	return strings.Split(d.Payload, "|")
}

package dialogue

import "strings"

const (
	maxSentences = 2
	maxReplyLen  = 300
)

var markdownArtifacts = []string{"**", "```", "###"}

// Text the model leaks from its instructions or from imagined transcripts.
var stopMarkers = []string{
	"---", "Example:", "Transcript:", "Caller:", "NOTE:", "RULES:",
	directivePrefix, "Constraints:", "<|", ">>>",
}

// Sanitize makes free model text fit to be spoken: markdown removed, cut at
// the first stop marker, at most two sentences and maxReplyLen characters.
func Sanitize(text string) string {
	for _, m := range markdownArtifacts {
		text = strings.ReplaceAll(text, m, "")
	}

	cut := len(text)
	for _, m := range stopMarkers {
		if i := strings.Index(text, m); i >= 0 && i < cut {
			cut = i
		}
	}
	text = strings.Join(strings.Fields(text[:cut]), " ")

	if sentences := strings.Split(text, ". "); len(sentences) > maxSentences {
		text = strings.Join(sentences[:maxSentences], ". ") + "."
	}

	if r := []rune(text); len(r) > maxReplyLen {
		text = string(r[:maxReplyLen])
		if i := strings.LastIndexByte(text, ' '); i > 0 {
			text = text[:i]
		}
		text = strings.TrimRight(text, " ,;:.") + "."
	}

	return strings.TrimSpace(text)
}

package agentic

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`(?s)<(analyze|plan|observe|decide|summarize)>(.*?)</(?:analyze|plan|observe|decide|summarize)>`)

// parseResponse splits an assistant response into its reasoning tags and
// the residual user-visible text (everything outside a recognized tag).
func parseResponse(text string) (tags map[ReasoningTag]string, visible string) {
	tags = make(map[ReasoningTag]string)
	visible = text

	matches := tagPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return tags, text
	}

	var residual []byte
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		nameStart, nameEnd := m[2], m[3]
		bodyStart, bodyEnd := m[4], m[5]

		residual = append(residual, text[last:start]...)
		last = end

		tag := ReasoningTag(text[nameStart:nameEnd])
		tags[tag] = text[bodyStart:bodyEnd]
	}
	residual = append(residual, text[last:]...)

	return tags, strings.TrimSpace(string(residual))
}

package gateway

import (
	"regexp"
	"strings"
)

// Matches the first fenced code block in a model reply, optionally tagged
// "sql". Only the first block is used; trailing blocks are discarded.
var fencedBlockRegex = regexp.MustCompile("(?i)```(?:sql)?\\s*([^`]+)```")

// ExtractSQL pulls the SQL out of a free-text model reply. If the reply
// contains a fenced code block the trimmed interior of the first block is
// returned, otherwise the whole reply is returned trimmed. This is a
// best-effort heuristic; the result is not validated as SQL.
func ExtractSQL(reply string) string {
	if match := fencedBlockRegex.FindStringSubmatch(reply); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(reply)
}

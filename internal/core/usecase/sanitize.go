package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	activeTagPattern   = regexp.MustCompile(`(?is)<\s*/?\s*(iframe|object|embed|applet|form|meta|link|style)\b[^>]*>`)
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
	protocolPattern    = regexp.MustCompile(`(?i)(javascript|data|vbscript)\s*:`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// shell metacharacters are neutralized in order: compound operators
// first so their single-character parts do not mangle them.
var shellReplacements = []struct {
	from string
	to   string
}{
	{"&&", " and "},
	{"||", " or "},
	{"$(", " "},
	{"${", " "},
	{";", " "},
	{"|", " "},
	{"&", " "},
	{"`", "'"},
	{"$", ""},
}

// sanitizeQueryText strips markup and neutralizes injection vectors
// before the text reaches any downstream stage. The result keeps the
// original casing; normalization for cache keys happens separately.
func sanitizeQueryText(text string) string {
	text = scriptBlockPattern.ReplaceAllString(text, " ")
	text = activeTagPattern.ReplaceAllString(text, " ")
	text = htmlTagPattern.ReplaceAllString(text, " ")
	text = protocolPattern.ReplaceAllString(text, " ")

	for _, r := range shellReplacements {
		text = strings.ReplaceAll(text, r.from, r.to)
	}

	text = strings.Map(func(r rune) rune {
		if r == '\x00' || (r < 0x20 && r != '\n' && r != '\t') {
			return -1
		}
		return r
	}, text)

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

var stopPhrases = []string{"please", "can you", "could you", "i want", "i need"}

// normalizeQueryText canonicalizes sanitized text for cache keys:
// lowercase, courtesy phrases removed, whitespace collapsed. Two
// phrasings of the same question normalize to the same string.
func normalizeQueryText(text string) string {
	text = strings.ToLower(text)
	for _, phrase := range stopPhrases {
		text = strings.ReplaceAll(text, phrase, " ")
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

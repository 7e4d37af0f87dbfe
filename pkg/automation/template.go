package automation

import (
	"math/rand"
	"strings"
)

// DefaultCommentTemplates are used when an account has no templates of
// its own. Spin groups keep repeated comments from looking identical.
var DefaultCommentTemplates = []string{
	"{Amazing|Awesome|Great|Nice|Cool} {video|content|post}!",
	"{Love|Like|Enjoy} this!",
	"This is {awesome|great|amazing|incredible}! {Keep it up|More please}!",
	"{So good|Perfect|Brilliant}!",
	"{Wow|OMG|Amazing}! {Love it|This is great}!",
}

// ProcessTemplate expands spin syntax: every {a|b|c} group is replaced
// by one alternative chosen uniformly at random, independently per
// group. Text without braces is returned unchanged. Unterminated braces
// are left as-is.
func ProcessTemplate(text string, rng *rand.Rand) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			b.WriteString(text)
			break
		}
		close := strings.IndexByte(text[open:], '}')
		if close < 0 {
			b.WriteString(text)
			break
		}
		close += open

		b.WriteString(text[:open])
		options := strings.Split(text[open+1:close], "|")
		b.WriteString(options[rng.Intn(len(options))])
		text = text[close+1:]
	}
	return b.String()
}

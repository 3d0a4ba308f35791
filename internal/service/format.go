package service

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	citationPattern    = regexp.MustCompile(`\[SID:\s*([\w-]+)\]|Source ID:\s*([\w-]+)`)
	codeFencePattern   = regexp.MustCompile("```([\\w+#.-]*)[ \\t]*\\n?([\\s\\S]*?)```")
	inlineCodePattern  = regexp.MustCompile("`([^`\\n]+)`")
	boldPattern        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern      = regexp.MustCompile(`\*([^*\n]+)\*`)
	placeholderPattern = regexp.MustCompile("\x00(\\d+)\x00")
)

// Formatter turns assistant text into display HTML. Only the markup it
// produces itself survives the final sanitising pass.
type Formatter struct {
	policy *bluemonday.Policy
}

func NewFormatter() *Formatter {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("pre", "code", "strong", "em", "br")
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#.-]+$`)).OnElements("code")
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^citation$`)).OnElements("span")
	policy.AllowAttrs("data-source-id").Matching(regexp.MustCompile(`^[\w-]+$`)).OnElements("span")
	policy.AllowAttrs("data-citation").Matching(regexp.MustCompile(`^\d+$`)).OnElements("span")
	return &Formatter{policy: policy}
}

// Format runs the display pipeline: fenced code, inline code, citations,
// bold and italic, then line breaks. Code is shown literally, so markers
// inside it are not citations. Citation numbers start at 1 for every call
// and repeat for a source id already seen in the same text.
func (f *Formatter) Format(text string) string {
	// NUL delimits stash placeholders and never appears in display text.
	text = strings.ReplaceAll(text, "\x00", "")

	var stash []string
	hold := func(fragment string) string {
		stash = append(stash, fragment)
		return fmt.Sprintf("\x00%d\x00", len(stash)-1)
	}

	text = codeFencePattern.ReplaceAllStringFunc(text, func(block string) string {
		m := codeFencePattern.FindStringSubmatch(block)
		code := html.EscapeString(strings.TrimRight(m[2], "\n"))
		if m[1] == "" {
			return hold("<pre><code>" + code + "</code></pre>")
		}
		return hold(fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, m[1], code))
	})
	text = inlineCodePattern.ReplaceAllStringFunc(text, func(span string) string {
		m := inlineCodePattern.FindStringSubmatch(span)
		return hold("<code>" + html.EscapeString(m[1]) + "</code>")
	})

	text = rewriteCitations(text)

	text = boldPattern.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicPattern.ReplaceAllString(text, "<em>$1</em>")
	text = strings.ReplaceAll(text, "\n", "<br>")

	text = placeholderPattern.ReplaceAllStringFunc(text, func(ph string) string {
		i, err := strconv.Atoi(strings.Trim(ph, "\x00"))
		if err != nil || i >= len(stash) {
			return ""
		}
		return stash[i]
	})

	return f.policy.Sanitize(text)
}

func rewriteCitations(text string) string {
	numbers := make(map[string]int)
	return citationPattern.ReplaceAllStringFunc(text, func(marker string) string {
		m := citationPattern.FindStringSubmatch(marker)
		id := m[1]
		if id == "" {
			id = m[2]
		}
		n, ok := numbers[id]
		if !ok {
			n = len(numbers) + 1
			numbers[id] = n
		}
		return fmt.Sprintf(`<span class="citation" data-source-id="%s" data-citation="%d">[%d]</span>`, id, n, n)
	})
}

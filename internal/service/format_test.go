package service

import (
	"strings"
	"testing"
)

func TestFormatCitationNumbering(t *testing.T) {
	f := NewFormatter()
	out := f.Format("First [SID: 42] then [SID: 7] and again Source ID: 42.")

	first := `<span class="citation" data-source-id="42" data-citation="1">[1]</span>`
	second := `<span class="citation" data-source-id="7" data-citation="2">[2]</span>`

	if strings.Count(out, first) != 2 {
		t.Fatalf("expected source 42 twice as citation 1, got %q", out)
	}
	if strings.Count(out, second) != 1 {
		t.Fatalf("expected source 7 once as citation 2, got %q", out)
	}
	if strings.Index(out, first) > strings.Index(out, second) {
		t.Fatalf("citation order changed: %q", out)
	}
}

func TestFormatNumberingResetsPerMessage(t *testing.T) {
	f := NewFormatter()
	f.Format("[SID: 1] [SID: 2]")
	out := f.Format("[SID: 2]")
	if !strings.Contains(out, `data-source-id="2" data-citation="1"`) {
		t.Fatalf("numbering should restart for every message, got %q", out)
	}
}

func TestFormatPipeline(t *testing.T) {
	f := NewFormatter()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bold and italic",
			in:   "**bold** and *soft*",
			want: "<strong>bold</strong> and <em>soft</em>",
		},
		{
			name: "line breaks",
			in:   "one\ntwo",
			want: "one<br>two",
		},
		{
			name: "inline code keeps markup literal",
			in:   "use `**x** <b>` here",
			want: "use <code>**x** &lt;b&gt;</code> here",
		},
		{
			name: "fenced code",
			in:   "```go\nx := 1 < 2\n```",
			want: `<pre><code class="language-go">x := 1 &lt; 2</code></pre>`,
		},
		{
			name: "fence without language keeps newlines",
			in:   "```\na\nb\n```",
			want: "<pre><code>a\nb</code></pre>",
		},
		{
			name: "citation inside inline code stays literal",
			in:   "`x [SID: 3]` then [SID: 9]",
			want: `<code>x [SID: 3]</code> then <span class="citation" data-source-id="9" data-citation="1">[1]</span>`,
		},
		{
			name: "citation inside fence stays literal",
			in:   "```\nsee [SID: 4]\n```",
			want: "<pre><code>see [SID: 4]</code></pre>",
		},
		{
			name: "nul placeholders in input are dropped",
			in:   "nul \x000\x00 here `c`",
			want: "nul 0 here <code>c</code>",
		},
		{
			name: "raw html is stripped",
			in:   "hi <script>alert(1)</script><b>there</b>",
			want: "hi there",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Format(tt.in); got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/newsdesk/internal/app/system/htmlsanitize"
)

func TestSanitize_KeepsFormatting(t *testing.T) {
	inputs := []string{
		"",
		"Lecture cancelled on Friday.",
		"<p><strong>Room change</strong> for <em>Physics I</em></p>",
		"<ul><li>Bring ID</li><li>Arrive early</li></ul>",
		"<u>u</u> <s>s</s> <mark>m</mark>",
		"<table><thead><tr><th>Day</th></tr></thead><tbody><tr><td>Mon</td></tr></tbody></table>",
	}
	for _, in := range inputs {
		if got := htmlsanitize.Sanitize(in); got != in {
			t.Errorf("Sanitize(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestSanitize_StripsDangerous(t *testing.T) {
	tests := []struct {
		in      string
		mustNot string
		keep    string
	}{
		{"<p>Hi</p><script>alert(1)</script>", "script", "<p>Hi</p>"},
		{`<a href="javascript:alert(1)">x</a>`, "javascript:", "x"},
		{`<button onclick="steal()">Go</button>`, "onclick", "Go"},
		{`<p>Body</p><iframe src="https://evil.example"></iframe>`, "iframe", "Body"},
		{`<style>p{}</style><p>Text</p>`, "<style>", "Text"},
	}
	for _, tt := range tests {
		got := htmlsanitize.Sanitize(tt.in)
		if strings.Contains(got, tt.mustNot) {
			t.Errorf("Sanitize(%q) = %q, still contains %q", tt.in, got, tt.mustNot)
		}
		if !strings.Contains(got, tt.keep) {
			t.Errorf("Sanitize(%q) = %q, lost %q", tt.in, got, tt.keep)
		}
	}
}

func TestSanitize_KeepsSafeLinks(t *testing.T) {
	got := htmlsanitize.Sanitize(`<a href="https://www.u-tokyo.ac.jp/notice">notice</a>`)
	if !strings.Contains(got, `href="https://www.u-tokyo.ac.jp/notice"`) {
		t.Errorf("safe link dropped: %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	if !htmlsanitize.IsPlainText("") || !htmlsanitize.IsPlainText("plain words") {
		t.Error("plain strings should be plain text")
	}
	if htmlsanitize.IsPlainText("<p>x</p>") {
		t.Error("markup should not be plain text")
	}
}

package gateway

import "github.com/valyala/fasttemplate"

// renderPRBody renders the pull request body template.
// Supported variables: {{title}}, {{head}}, {{base}}.
// Unknown variables render empty.
func renderPRBody(
	tmpl string,
	title string,
	head string,
	base string,
) string {
	t := fasttemplate.New(tmpl, "{{", "}}")

	return t.ExecuteString(map[string]any{
		"title": title,
		"head":  head,
		"base":  base,
	})
}

package render

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// The policy never allows a live href or src attribute. The rewriter writes
// marker attributes (data-safe-href, data-safe-src) whose values must match
// these patterns; the pipeline promotes them back to href/src only after
// sanitization, so an injected value has to pass both the pattern and survive
// as an attribute name the sanitizer does not interpret.
var (
	safeHrefPattern    = regexp.MustCompile(`^(https?://|/go\?url=).+`)
	safeSrcPattern     = regexp.MustCompile(`^(/api/messages/.+/cid/.+|/api/messages/.+/assets/.+|/static/remote-image-blocked\.svg)$`)
	originalSrcPattern = regexp.MustCompile(`^https?://.+`)
)

// NewPolicy builds the allow-list policy for rendering email HTML bodies.
// Anything not listed here is stripped; children of stripped elements are
// kept, except for script/style whose content bluemonday drops entirely.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"a", "p", "br", "div", "span",
		"table", "tr", "td", "th", "thead", "tbody",
		"img", "ul", "ol", "li",
		"b", "strong", "i", "em",
		"pre", "code", "blockquote", "hr",
	)

	p.AllowAttrs("data-safe-href").Matching(safeHrefPattern).OnElements("a")
	p.AllowAttrs("title").OnElements("a")

	p.AllowAttrs("data-safe-src").Matching(safeSrcPattern).OnElements("img")
	p.AllowAttrs("data-original-src").Matching(originalSrcPattern).OnElements("img")
	p.AllowAttrs("alt", "title").OnElements("img")

	p.AllowAttrs("title").OnElements(
		"p", "div", "span", "table", "tr", "td", "th", "thead", "tbody",
		"ul", "ol", "li", "pre", "code", "blockquote",
	)
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")

	return p
}

package render

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/felo/mailvault/internal/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlaceholderImagePath is shown in place of remote images that have not been
// frozen locally
const PlaceholderImagePath = "/static/remote-image-blocked.svg"

// Rewrite parses rawHTML and rewrites every anchor href and image src into an
// indirected marker attribute before sanitization:
//
//   - a href        -> data-safe-href="/go?url=<escaped original>"
//   - img src cid:  -> data-safe-src="/api/messages/{id}/cid/{contentID}"
//   - img src http: -> data-safe-src pointing at the frozen local copy when
//     one exists in the frozen map, the blocked placeholder otherwise; the
//     original URL is preserved in data-original-src
//   - anything else -> data-safe-src carries the value through unchanged and
//     the sanitizer's value patterns decide its fate
//
// frozen maps a normalized remote URL to the asset id of its downloaded copy.
// Rewrite is total: input that cannot be parsed is returned unchanged, which
// is safe because the sanitizer never lets a live href/src through.
func Rewrite(rawHTML string, emailID int64, frozen map[string]string) string {
	nodes, err := parseFragment(rawHTML)
	if err != nil {
		return rawHTML
	}

	for _, n := range nodes {
		walkRewrite(n, emailID, frozen)
	}

	return renderNodes(nodes)
}

// ExtractRemoteImageURLs returns the normalized, de-duplicated http(s) image
// URLs referenced by rawHTML, in document order. This is the same recognition
// Rewrite applies, operating on the raw HTML the freeze engine sees.
func ExtractRemoteImageURLs(rawHTML string) []string {
	nodes, err := parseFragment(rawHTML)
	if err != nil {
		return nil
	}

	var urls []string
	seen := make(map[string]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			if src, ok := attrValue(n, "src"); ok && isRemoteURL(src) {
				if normalized, ok := NormalizeRemoteURL(src); ok && !seen[normalized] {
					seen[normalized] = true
					urls = append(urls, normalized)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}

	return urls
}

// NormalizeRemoteURL strips userinfo and fragment from an http(s) URL,
// keeping scheme, host, port, path and query. The normalized form is the
// dedup key within a freeze and the original_url of the asset record.
func NormalizeRemoteURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	u.Scheme = scheme
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

func parseFragment(raw string) ([]*html.Node, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	return html.ParseFragment(strings.NewReader(raw), body)
}

func renderNodes(nodes []*html.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return ""
		}
	}
	return b.String()
}

func walkRewrite(n *html.Node, emailID int64, frozen map[string]string) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.A:
			rewriteAnchor(n)
		case atom.Img:
			rewriteImage(n, emailID, frozen)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkRewrite(c, emailID, frozen)
	}
}

// rewriteAnchor routes every link through the /go redirect endpoint, which
// validates the scheme before sending the browser on
func rewriteAnchor(n *html.Node) {
	href, ok := takeAttr(n, "href")
	if !ok {
		return
	}
	setAttr(n, "data-safe-href", "/go?url="+url.QueryEscape(href))
}

func rewriteImage(n *html.Node, emailID int64, frozen map[string]string) {
	src, ok := takeAttr(n, "src")
	if !ok {
		return
	}

	switch {
	case hasCaseInsensitivePrefix(src, "cid:"):
		cid := parser.NormalizeContentID(src)
		setAttr(n, "data-safe-src", fmt.Sprintf("/api/messages/%d/cid/%s", emailID, cid))

	case isRemoteURL(src):
		safe := PlaceholderImagePath
		if normalized, ok := NormalizeRemoteURL(src); ok {
			if assetID, ok := frozen[normalized]; ok {
				safe = fmt.Sprintf("/api/messages/%d/assets/%s", emailID, assetID)
			}
		}
		setAttr(n, "data-safe-src", safe)
		setAttr(n, "data-original-src", src)

	default:
		// Pass through; the sanitizer's data-safe-src pattern is the final
		// check and drops anything unexpected
		setAttr(n, "data-safe-src", src)
	}
}

func isRemoteURL(s string) bool {
	return hasCaseInsensitivePrefix(s, "http://") || hasCaseInsensitivePrefix(s, "https://")
}

func hasCaseInsensitivePrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// takeAttr removes the named attribute and returns its value
func takeAttr(n *html.Node, key string) (string, bool) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// SPDX-License-Identifier: AGPL-3.0-only
package helpers

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ConvImageToURL turns an image reference returned by the backend into a
// URL. kind is "post" or "profile".
func ConvImageToURL(baseURL, kind, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref, nil
	}

	base := strings.TrimRight(baseURL, "/")
	switch kind {
	case "post":
		return base + "/post-img/" + url.PathEscape(ref), nil
	case "profile":
		return base + "/profile-img/" + url.PathEscape(ref), nil
	default:
		return "", fmt.Errorf("image kind %v not recognized", kind)
	}
}

func StripHTMLToText(input string) string {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return ""
	}

	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

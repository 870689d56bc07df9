package testutil

import (
	"io"
	"testing"

	"golang.org/x/net/html"
)

// ParseHTML はHTMLをパースしてドキュメントノードを返す。
func ParseHTML(t testing.TB, r io.Reader) *html.Node {
	t.Helper()
	doc, err := html.Parse(r)
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

// FindByTestID はdata-testid属性が一致する最初の要素を返す。見つからない場合はnil。
func FindByTestID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && Attr(n, "data-testid") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindByTestID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// FindAll はタグ名が一致する要素をすべて返す。
func FindAll(n *html.Node, tag string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

// Attr は要素の属性値を返す。存在しない場合は空文字列。
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Text は要素配下のテキストを連結して返す。
func Text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var s string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s += Text(c)
	}
	return s
}

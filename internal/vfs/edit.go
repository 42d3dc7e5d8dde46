package vfs

import (
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/net/html"
)

// splitDocumentHTML parses a full replacement document and returns its
// head/body inner HTML plus the root (<html>) element's attributes.
// Parsers are permissive (x/net/html never errors on malformed markup),
// so this only fails if the rune stream itself can't be read.
func splitDocumentHTML(content string) (head, body string, attrs map[string]string, err error) {
	doc, perr := html.Parse(strings.NewReader(content))
	if perr != nil {
		return "", "", nil, perr
	}
	attrs = map[string]string{}
	var headNode, bodyNode *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html":
				for _, a := range n.Attr {
					attrs[a.Key] = a.Val
				}
			case "head":
				headNode = n
			case "body":
				bodyNode = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if headNode != nil {
		head = renderChildren(headNode)
	}
	if bodyNode != nil {
		body = renderChildren(bodyNode)
	}
	return head, body, attrs, nil
}

func renderChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

var randomClassRe = regexp.MustCompile(`^[a-z0-9]{6,}$|[0-9]{4,}`)

// editElement finds the most specific element in bodyHTML whose rendered
// HTML contains old (literal first, then whitespace-flexible for
// page.html per spec §4.A.2), replaces old with newContent within that
// element's inner content, and returns a best-effort stable selector.
// Falls back to editing the whole body if no element is more specific.
func editElement(bodyHTML, old, newContent string, replaceAll bool) (newBody, selector string, replacements int, found bool) {
	idx, matched := findMatch(bodyHTML, old)
	if !matched {
		return bodyHTML, "", 0, false
	}
	_ = idx

	doc, err := html.Parse(strings.NewReader("<body>" + bodyHTML + "</body>"))
	if err != nil {
		return bodyHTML, "", 0, false
	}

	var bodyNode *html.Node
	var findBody func(*html.Node)
	findBody = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "body" {
			bodyNode = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findBody(c)
		}
	}
	findBody(doc)
	if bodyNode == nil {
		return bodyHTML, "", 0, false
	}

	target := findDeepestContaining(bodyNode, old)
	if target == nil {
		target = bodyNode
	}

	var buf strings.Builder
	_ = html.Render(&buf, target)
	targetHTML := buf.String()

	replaced, n := replaceMatches(targetHTML, old, newContent, replaceAll)
	if n == 0 {
		return bodyHTML, "", 0, false
	}

	selector = buildSelector(target)

	if target == bodyNode {
		newBody = replaced
		return newBody, selector, n, true
	}

	// Splice the replaced fragment back by textually substituting the
	// original target's outer HTML within the full body HTML. This keeps
	// the rest of the tree untouched while avoiding fragile node-surgery
	// against x/net/html's tree API.
	newBody = strings.Replace(bodyHTML, targetHTML, replaced, 1)
	return newBody, selector, n, true
}

func findMatch(haystack, old string) (int, bool) {
	if idx := strings.Index(haystack, old); idx >= 0 {
		return idx, true
	}
	// whitespace-flexible fallback: \s+ between tokens, normalized compare.
	pattern := regexp.QuoteMeta(old)
	pattern = regexp.MustCompile(`\s+`).ReplaceAllString(pattern, `\s+`)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, false
	}
	loc := re.FindStringIndex(haystack)
	if loc == nil {
		return 0, false
	}
	return loc[0], true
}

func replaceMatches(haystack, old, newContent string, replaceAll bool) (string, int) {
	if strings.Contains(haystack, old) {
		if replaceAll {
			n := strings.Count(haystack, old)
			return strings.ReplaceAll(haystack, old, newContent), n
		}
		return strings.Replace(haystack, old, newContent, 1), 1
	}

	// whitespace-flexible path: a whitespace-normalized containment check,
	// then a regexp with \s+ between tokens applied to the original text.
	dmp := diffmatchpatch.New()
	normOld := normalizeWS(old)
	normHaystack := normalizeWS(haystack)
	if !strings.Contains(normHaystack, normOld) {
		_ = dmp
		return haystack, 0
	}
	pattern := regexp.QuoteMeta(old)
	pattern = regexp.MustCompile(`\s+`).ReplaceAllString(pattern, `\s+`)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return haystack, 0
	}
	if replaceAll {
		matches := re.FindAllString(haystack, -1)
		return re.ReplaceAllString(haystack, newContent), len(matches)
	}
	loc := re.FindStringIndex(haystack)
	if loc == nil {
		return haystack, 0
	}
	return haystack[:loc[0]] + newContent + haystack[loc[1]:], 1
}

func normalizeWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// findDeepestContaining walks the tree and returns the deepest element
// node whose rendered HTML still contains old as a substring (first
// matching ancestor, per spec §4.A.2).
func findDeepestContaining(n *html.Node, old string) *html.Node {
	var best *html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			var buf strings.Builder
			_ = html.Render(&buf, node)
			if strings.Contains(buf.String(), old) {
				best = node
				for c := node.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return best
}

// buildSelector derives a best-effort stable descriptor for an element:
// id if present, else tag+classes, climbing up to 4 ancestors and
// skipping class names randomClassRe matches: any class of six or more
// lowercase letters/digits (which includes plain words such as "button")
// and any class containing a run of four or more digits.
func buildSelector(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return "body"
	}
	if id := attrVal(n, "id"); id != "" {
		return "#" + id
	}
	var parts []string
	cur := n
	for i := 0; i < 4 && cur != nil && cur.Type == html.ElementNode; i++ {
		parts = append([]string{describeNode(cur)}, parts...)
		cur = cur.Parent
	}
	return strings.Join(parts, " > ")
}

func describeNode(n *html.Node) string {
	desc := n.Data
	classes := attrVal(n, "class")
	for _, c := range strings.Fields(classes) {
		if randomClassRe.MatchString(c) {
			continue
		}
		desc += "." + c
	}
	return desc
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

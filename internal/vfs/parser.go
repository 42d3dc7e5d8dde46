package vfs

import (
	"regexp"
	"strings"
)

var scriptLeafRe = regexp.MustCompile(`^scripts/([^/]+)\.js$`)
var styleLeafRe = regexp.MustCompile(`^styles/([^/]+)\.css$`)

// ActivePage is the currently loaded page, used to resolve relative and
// bare-leaf paths against.
type ActivePage struct {
	Domain  string
	URLPath string
}

// NormalizeURLPath strips trailing slashes (root stays "/").
func NormalizeURLPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// ParsePath parses a virtual path into domain/urlPath/kind/fileName.
// It accepts absolute paths ("/dom/..."), current-dir-relative paths
// ("./...", "../..."), and bare leaves resolved against active.
func ParsePath(s string, active *ActivePage) (*Path, error) {
	if s == "" {
		return nil, newErr(ErrKindInvalidPath, "empty path")
	}

	var domain, rest string

	switch {
	case strings.HasPrefix(s, "/"):
		trimmed := strings.TrimPrefix(s, "/")
		parts := strings.SplitN(trimmed, "/", 2)
		domain = parts[0]
		if domain == "" {
			return nil, newErr(ErrKindInvalidPath, "missing domain in %q", s)
		}
		if len(parts) == 2 {
			rest = "/" + parts[1]
		} else {
			rest = "/"
		}
	case strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") || s == "." || s == "..":
		if active == nil {
			return nil, newErr(ErrKindInvalidPath, "relative path %q with no active page", s)
		}
		domain = active.Domain
		base := active.URLPath
		rest = resolveRelative(base, s)
	default:
		// bare leaf: resolve against the active page's directory.
		if active == nil {
			return nil, newErr(ErrKindInvalidPath, "bare leaf %q with no active page", s)
		}
		domain = active.Domain
		rest = joinURLPath(active.URLPath, s)
	}

	urlPath, leaf := splitLeaf(rest)
	urlPath = NormalizeURLPath(urlPath)

	kind, fileName, err := classifyLeaf(leaf)
	if err != nil {
		return nil, err
	}

	full := "/" + domain + urlPath
	if urlPath == "/" {
		full = "/" + domain
	}
	if leaf != "" {
		if full == "/"+domain {
			full += "/" + leaf
		} else {
			full += "/" + leaf
		}
	}

	return &Path{
		Domain:   domain,
		URLPath:  urlPath,
		Kind:     kind,
		FileName: fileName,
		Full:     full,
	}, nil
}

// splitLeaf separates the trailing recognized leaf (if any) from the
// directory portion of a path-after-domain string like "/a/b/page.html".
func splitLeaf(rest string) (urlPath, leaf string) {
	rest = strings.TrimSuffix(rest, "")
	trimmed := strings.TrimPrefix(rest, "/")
	if trimmed == "" {
		return "/", ""
	}
	segments := strings.Split(trimmed, "/")
	last := segments[len(segments)-1]

	// scripts/<name>.js and styles/<name>.css are two segments deep.
	if len(segments) >= 2 {
		twoSeg := segments[len(segments)-2] + "/" + last
		if scriptLeafRe.MatchString(twoSeg) || styleLeafRe.MatchString(twoSeg) {
			dir := strings.Join(segments[:len(segments)-2], "/")
			return "/" + dir, twoSeg
		}
	}

	switch last {
	case "page.html", "console.log", "screenshot.png", "plan.md":
		dir := strings.Join(segments[:len(segments)-1], "/")
		return "/" + dir, last
	case "scripts", "styles":
		dir := strings.Join(segments[:len(segments)-1], "/")
		return "/" + dir, last
	}

	// Not a recognized leaf: the whole thing is a directory path.
	return "/" + trimmed, ""
}

func classifyLeaf(leaf string) (FileKind, string, error) {
	switch {
	case leaf == "":
		return KindDir, "", nil
	case leaf == "page.html":
		return KindPageHTML, "", nil
	case leaf == "console.log":
		return KindConsoleLog, "", nil
	case leaf == "screenshot.png":
		return KindScreenshot, "", nil
	case leaf == "plan.md":
		return KindPlan, "", nil
	case leaf == "scripts" || leaf == "styles":
		return KindDir, leaf, nil
	case scriptLeafRe.MatchString(leaf):
		m := scriptLeafRe.FindStringSubmatch(leaf)
		return KindScript, m[1] + ".js", nil
	case styleLeafRe.MatchString(leaf):
		m := styleLeafRe.FindStringSubmatch(leaf)
		return KindStyle, m[1] + ".css", nil
	default:
		return KindUnknown, "", newErr(ErrKindInvalidPath, "unrecognized leaf %q", leaf)
	}
}

// resolveRelative resolves a "./..."/"../..." path against base, composing
// "." and ".." normally and dropping extra ".." instead of escaping root.
func resolveRelative(base, rel string) string {
	baseSegs := splitSegs(base)
	relSegs := strings.Split(rel, "/")
	for _, seg := range relSegs {
		switch seg {
		case "", ".":
			// no-op
		case "..":
			if len(baseSegs) > 0 {
				baseSegs = baseSegs[:len(baseSegs)-1]
			}
		default:
			baseSegs = append(baseSegs, seg)
		}
	}
	return "/" + strings.Join(baseSegs, "/")
}

func joinURLPath(base, leaf string) string {
	b := strings.TrimSuffix(base, "/")
	return b + "/" + leaf
}

func splitSegs(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

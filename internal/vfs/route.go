package vfs

import (
	"regexp"
	"sort"
	"strings"
)

// RoutePattern is a compiled urlPath pattern that may contain dynamic
// segments [name] (single segment) or a catch-all [...name] (one or
// more segments).
type RoutePattern struct {
	Pattern      string
	re           *regexp.Regexp
	ParamNames   []string
	IsCatchAll   bool
	StaticCount  int
	DynamicCount int
}

var dynamicSegRe = regexp.MustCompile(`^\[(\.\.\.)?([A-Za-z_][A-Za-z0-9_]*)\]$`)

// CompileRoute compiles a stored urlPath pattern (e.g. "/products/[id]")
// into a RoutePattern. Exact (no dynamic segments) patterns compile too;
// they simply carry zero param names and ZERO dynamic segments, which
// gives them top exact-match priority in findMatchingRoutes.
func CompileRoute(pattern string) (*RoutePattern, error) {
	pattern = NormalizeURLPath(pattern)
	segs := splitSegs(pattern)

	var reParts []string
	var params []string
	isCatchAll := false
	static, dynamic := 0, 0

	for i, seg := range segs {
		m := dynamicSegRe.FindStringSubmatch(seg)
		if m == nil {
			reParts = append(reParts, regexp.QuoteMeta(seg))
			static++
			continue
		}
		dynamic++
		name := m[2]
		params = append(params, name)
		if m[1] == "..." {
			isCatchAll = true
			reParts = append(reParts, "(.+)")
			if i != len(segs)-1 {
				// catch-all must be the final segment; treat remainder literally.
			}
		} else {
			reParts = append(reParts, "([^/]+)")
		}
	}

	body := strings.Join(reParts, "/")
	var exprStr string
	if isCatchAll {
		exprStr = "^/" + body + "$"
	} else {
		exprStr = "^/" + body + "/?$"
	}
	if body == "" {
		exprStr = "^/$"
	}

	re, err := regexp.Compile(exprStr)
	if err != nil {
		return nil, newErr(ErrKindInvalidPath, "invalid route pattern %q: %v", pattern, err)
	}

	return &RoutePattern{
		Pattern:      pattern,
		re:           re,
		ParamNames:   params,
		IsCatchAll:   isCatchAll,
		StaticCount:  static,
		DynamicCount: dynamic,
	}, nil
}

// RouteMatch is one successful match of a urlPath against a pattern.
type RouteMatch struct {
	Pattern *RoutePattern
	Params  map[string]string
}

// priority orders matches: exact (no dynamic segments) > more static
// segments > fewer catch-alls, with catch-alls always losing to any
// non-catch-all dynamic pattern of equal static count.
func (p *RoutePattern) priority() int {
	score := p.StaticCount * 10
	if p.DynamicCount == 0 {
		score += 1_000_000 // exact pattern: always wins
	} else if p.IsCatchAll {
		score -= 100
	}
	return score
}

// FindMatchingRoutes tests urlPath against every compiled pattern and
// returns matches sorted strictly by (priority desc, insertion order).
func FindMatchingRoutes(urlPath string, patterns []*RoutePattern) []RouteMatch {
	urlPath = NormalizeURLPath(urlPath)
	type scored struct {
		idx   int
		match RouteMatch
		score int
	}
	var out []scored
	for i, p := range patterns {
		m := p.re.FindStringSubmatch(urlPath)
		if m == nil {
			continue
		}
		params := make(map[string]string, len(p.ParamNames))
		for j, name := range p.ParamNames {
			if j+1 < len(m) {
				params[name] = m[j+1]
			}
		}
		out = append(out, scored{idx: i, match: RouteMatch{Pattern: p, Params: params}, score: p.priority()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].idx < out[j].idx
	})
	matches := make([]RouteMatch, len(out))
	for i, s := range out {
		matches[i] = s.match
	}
	return matches
}

// Regexp exposes the compiled matcher so callers outside the package
// (the Script Lifecycle Manager's match-pattern generation) can derive
// an equivalent JS-side regular expression without recompiling it.
func (p *RoutePattern) Regexp() *regexp.Regexp {
	return p.re
}

// BestRoute returns the single highest-priority match, or ok=false.
func BestRoute(urlPath string, patterns []*RoutePattern) (RouteMatch, bool) {
	matches := FindMatchingRoutes(urlPath, patterns)
	if len(matches) == 0 {
		return RouteMatch{}, false
	}
	return matches[0], true
}

// PatternURLToMatchGlob converts a route pattern's urlPath into the
// "*"-wildcard match-pattern path segment used by the Script Lifecycle
// Manager's persistent user-script registration ("*://{domain}{path}*").
func PatternURLToMatchGlob(urlPath string) string {
	segs := splitSegs(urlPath)
	for i, seg := range segs {
		if dynamicSegRe.MatchString(seg) {
			segs[i] = "*"
		}
	}
	return "/" + strings.Join(segs, "/")
}

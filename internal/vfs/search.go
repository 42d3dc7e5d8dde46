package vfs

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob implements spec §4.A.2 Glob: a doublestar (`*`/`?`/`**`) pattern
// matched against the current directory's enumerable files (page.html +
// console.log + scripts + styles). No recursion across domains.
func (v *VFS) Glob(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, newErr(ErrKindInvalidPath, "invalid glob pattern: %q", pattern)
	}

	active := v.Active()
	candidates := []string{"page.html", "console.log"}

	dom, _ := v.Store.GetDomain(ctx, active.Domain)
	if dom != nil {
		if rec := findRecord(dom, active.URLPath); rec != nil {
			for name := range rec.Scripts {
				candidates = append(candidates, "scripts/"+name)
			}
			for name := range rec.Styles {
				candidates = append(candidates, "styles/"+name)
			}
		}
	}

	var out []string
	for _, c := range candidates {
		if ok, _ := doublestar.Match(pattern, c); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// GrepMatch is one match with surrounding context lines.
type GrepMatch struct {
	Path    string
	Line    int
	Text    string
	Context []string
}

// GrepResult is the Grep() response payload.
type GrepResult struct {
	Matches   []GrepMatch
	Count     int
	Truncated bool
	Message   string
}

// Grep implements spec §4.A.2 Grep: case-insensitive regex (falling back
// to a literal match if the pattern doesn't compile), up to 30 matches
// with contextLines of surrounding context.
func (v *VFS) Grep(ctx context.Context, pattern, pathStr string, contextLines int) (*GrepResult, error) {
	re, err := compileGrepPattern(pattern)
	if err != nil {
		return nil, newErr(ErrKindInvalidPath, "invalid pattern: %v", err)
	}
	content, path, err := v.grepTarget(ctx, pathStr)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(content, "\n")
	var matches []GrepMatch
	truncated := false
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		if len(matches) >= maxGrepMatches {
			truncated = true
			break
		}
		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i + contextLines + 1
		if end > len(lines) {
			end = len(lines)
		}
		matches = append(matches, GrepMatch{Path: path, Line: i, Text: line, Context: lines[start:end]})
	}

	res := &GrepResult{Matches: matches, Count: len(matches), Truncated: truncated}
	if truncated {
		res.Message = fmt.Sprintf("truncated to first %d matches", maxGrepMatches)
	}
	return res, nil
}

// GrepCount implements spec §4.A.2 GrepCount: same search, no content.
func (v *VFS) GrepCount(ctx context.Context, pattern, pathStr string) (int, string, error) {
	re, err := compileGrepPattern(pattern)
	if err != nil {
		return 0, "", newErr(ErrKindInvalidPath, "invalid pattern: %v", err)
	}
	content, path, err := v.grepTarget(ctx, pathStr)
	if err != nil {
		return 0, "", err
	}
	count := 0
	for _, line := range strings.Split(content, "\n") {
		if re.MatchString(line) {
			count++
		}
	}
	return count, path, nil
}

func compileGrepPattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err == nil {
		return re, nil
	}
	// treat as literal by escaping.
	return regexp.Compile("(?i)" + regexp.QuoteMeta(pattern))
}

func (v *VFS) grepTarget(ctx context.Context, pathStr string) (content, path string, err error) {
	if pathStr == "" {
		active := v.Active()
		pathStr = "/" + active.Domain + active.URLPath + "/page.html"
	}
	res, err := v.Read(ctx, pathStr, nil, nil)
	if err != nil {
		return "", "", err
	}
	return res.Content, res.Path, nil
}

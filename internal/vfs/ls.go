package vfs

import (
	"context"
	"sort"
)

// Ls implements spec §4.A.2 Ls: virtual directories are page.html,
// console.log (always present), screenshot.png/plan.md (if present),
// plus scripts/ and styles/ as directories. Listing a scripts/ or
// styles/ directory resolves route patterns (invariant 4) and returns
// the concrete files.
func (v *VFS) Ls(ctx context.Context, pathStr string) ([]Entry, error) {
	p, err := v.parse(pathStr)
	if err != nil {
		return nil, err
	}
	if err := v.checkDomain(p); err != nil {
		return nil, err
	}

	if p.Kind == KindScript || p.Kind == KindStyle {
		return nil, newErr(ErrKindInvalidPath, "%q is a file, not a directory", pathStr)
	}

	if p.FileName == "scripts" || p.FileName == "styles" {
		return v.lsBucket(ctx, p)
	}

	var entries []Entry
	entries = append(entries, Entry{Name: "page.html", Kind: KindPageHTML, Path: p.Full + "/page.html"})
	entries = append(entries, Entry{Name: "console.log", Kind: KindConsoleLog, Path: p.Full + "/console.log"})

	active := v.Active()
	key := pageKey(p.Domain, p.URLPath)
	v.mu.Lock()
	_, hasShot := v.screenshots[key]
	_, hasPlan := v.plans[key]
	v.mu.Unlock()
	if hasShot {
		entries = append(entries, Entry{Name: "screenshot.png", Kind: KindScreenshot, Path: p.Full + "/screenshot.png"})
	}
	if hasPlan {
		entries = append(entries, Entry{Name: "plan.md", Kind: KindPlan, Path: p.Full + "/plan.md"})
	}
	_ = active

	entries = append(entries, Entry{Name: "scripts", Kind: KindDir, Path: p.Full + "/scripts"})
	entries = append(entries, Entry{Name: "styles", Kind: KindDir, Path: p.Full + "/styles"})
	return entries, nil
}

func (v *VFS) lsBucket(ctx context.Context, p *Path) ([]Entry, error) {
	dom, err := v.Store.GetDomain(ctx, p.Domain)
	if err != nil || dom == nil {
		return nil, nil
	}
	rec := findRecord(dom, p.URLPath)
	if rec == nil {
		return nil, nil
	}
	bucket := rec.Scripts
	kind := KindScript
	ext := ".js"
	if p.FileName == "styles" {
		bucket = rec.Styles
		kind = KindStyle
		ext = ".css"
	}
	_ = ext
	var names []string
	for name := range bucket {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]Entry, 0, len(names))
	for _, n := range names {
		entries = append(entries, Entry{Name: n, Kind: kind, Path: p.Full + "/" + n})
	}
	return entries, nil
}

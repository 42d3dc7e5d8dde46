package vfs

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"time"
)

// VFS is the per-tab virtual filesystem view: one live page document, one
// console buffer, in-memory screenshot/plan slots, and a handle to the
// domain-keyed persistent store shared across all tabs.
type VFS struct {
	Store   DomainStore
	Page    *PageDocument
	Console *ConsoleBuffer

	mu          sync.Mutex
	screenshots map[string]*File
	plans       map[string]*File
	active      ActivePage
}

func New(store DomainStore, page *PageDocument, active ActivePage) *VFS {
	return &VFS{
		Store:       store,
		Page:        page,
		Console:     NewConsoleBuffer(),
		screenshots: map[string]*File{},
		plans:       map[string]*File{},
		active:      active,
	}
}

// SetActive updates the active page (called on navigation).
func (v *VFS) SetActive(a ActivePage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = a
}

func (v *VFS) Active() ActivePage {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

func pageKey(domain, urlPath string) string {
	return domain + "|" + NormalizeURLPath(urlPath)
}

func (v *VFS) checkDomain(p *Path) error {
	active := v.Active()
	if p.Domain != active.Domain {
		return newErr(ErrKindPermissionDenied, "path domain %q does not match active domain %q", p.Domain, active.Domain)
	}
	return nil
}

func (v *VFS) parse(pathStr string) (*Path, error) {
	active := v.Active()
	return ParsePath(pathStr, &active)
}

// ReadResult is the Read() response payload.
type ReadResult struct {
	Content string
	Version int
	Lines   int
	Path    string
	Image   *ImageResult // non-nil only for screenshot.png
}

// ImageResult carries base64 image data for tool_result blocks that
// deviate from text-only content (spec §4.C.3).
type ImageResult struct {
	Base64    string
	MediaType string
}

// Read implements spec §4.A.2 Read.
func (v *VFS) Read(ctx context.Context, pathStr string, offset, limit *int) (*ReadResult, error) {
	p, err := v.parse(pathStr)
	if err != nil {
		return nil, err
	}
	if p.Kind == KindDir {
		return nil, newErr(ErrKindInvalidPath, "%q is a directory", pathStr)
	}
	if err := v.checkDomain(p); err != nil {
		return nil, err
	}

	var content string
	var version int

	switch p.Kind {
	case KindPageHTML:
		content, version, err = v.Page.Read(ctx)
		if err != nil {
			return nil, err
		}
	case KindConsoleLog:
		content, version = v.Console.Read()
	case KindScreenshot:
		v.mu.Lock()
		f := v.screenshots[pageKey(p.Domain, p.URLPath)]
		v.mu.Unlock()
		if f == nil {
			return nil, newErr(ErrKindNotFound, "no screenshot captured for %s", p.URLPath)
		}
		mediaType, b64 := splitDataURL(f.Content)
		return &ReadResult{Content: f.Content, Version: f.Version, Path: p.Full, Image: &ImageResult{Base64: b64, MediaType: mediaType}}, nil
	case KindPlan:
		v.mu.Lock()
		f := v.plans[pageKey(p.Domain, p.URLPath)]
		v.mu.Unlock()
		if f == nil {
			content, version = "", 0
		} else {
			content, version = f.Content, f.Version
		}
	case KindScript, KindStyle:
		rec, file, ferr := v.lookupFile(ctx, p)
		if ferr != nil {
			return nil, ferr
		}
		_ = rec
		content, version = file.Content, file.Version
	default:
		return nil, newErr(ErrKindInvalidPath, "unsupported kind %v", p.Kind)
	}

	lines := strings.Split(content, "\n")
	total := len(lines)
	if offset != nil || limit != nil {
		o := 0
		if offset != nil {
			o = *offset
		}
		if o > total {
			o = total
		}
		end := total
		if limit != nil {
			end = o + *limit
			if end > total {
				end = total
			}
		}
		lines = lines[o:end]
		content = strings.Join(lines, "\n")
	}

	if len(content) > maxReadChars {
		return nil, newErr(ErrKindInvalidPath, "content is %d characters; use grep or offset/limit to narrow the read", len(content))
	}

	return &ReadResult{Content: content, Version: version, Lines: total, Path: p.Full}, nil
}

// lookupFile resolves a script/style file via exact urlPath match first,
// falling back to route-pattern resolution (invariant 4).
func (v *VFS) lookupFile(ctx context.Context, p *Path) (*PathRecord, *File, error) {
	dom, err := v.Store.GetDomain(ctx, p.Domain)
	if err != nil {
		return nil, nil, newErr(ErrKindNotFound, "domain %q: %v", p.Domain, err)
	}
	if dom == nil {
		return nil, nil, newErr(ErrKindNotFound, "no files for domain %q", p.Domain)
	}
	rec := findRecord(dom, p.URLPath)
	if rec == nil {
		return nil, nil, newErr(ErrKindNotFound, "no files at %s%s", p.Domain, p.URLPath)
	}
	var bucket map[string]*File
	if p.Kind == KindScript {
		bucket = rec.Scripts
	} else {
		bucket = rec.Styles
	}
	f, ok := bucket[p.FileName]
	if !ok {
		return nil, nil, newErr(ErrKindNotFound, "%s not found at %s%s", p.FileName, p.Domain, p.URLPath)
	}
	return rec, f, nil
}

// findRecord resolves urlPath against a domain's stored paths: exact
// match first, then the highest-priority route pattern match.
func findRecord(dom *DomainRecord, urlPath string) *PathRecord {
	urlPath = NormalizeURLPath(urlPath)
	if rec, ok := dom.Paths[urlPath]; ok {
		return rec
	}
	var patterns []*RoutePattern
	keys := make([]string, 0, len(dom.Paths))
	for k := range dom.Paths {
		keys = append(keys, k)
	}
	for _, k := range keys {
		if rp, err := CompileRoute(k); err == nil {
			patterns = append(patterns, rp)
		}
	}
	match, ok := BestRoute(urlPath, patterns)
	if !ok {
		return nil
	}
	return dom.Paths[match.Pattern.Pattern]
}

// WriteResult is the Write() response payload.
type WriteResult struct {
	Version int
}

// Write implements spec §4.A.2 Write.
func (v *VFS) Write(ctx context.Context, pathStr, content string, expectedVersion int) (*WriteResult, error) {
	p, err := v.parse(pathStr)
	if err != nil {
		return nil, err
	}
	if err := v.checkDomain(p); err != nil {
		return nil, err
	}

	switch p.Kind {
	case KindPageHTML:
		ver, err := v.pageVersionGate(ctx, expectedVersion)
		if err != nil {
			return nil, err
		}
		_ = ver
		newVer, err := v.Page.Write(ctx, content)
		if err != nil {
			return nil, err
		}
		return &WriteResult{Version: newVer}, nil
	case KindScreenshot:
		return nil, newErr(ErrKindInvalidPath, "screenshot.png is write-once-per-capture; use the capture action")
	case KindConsoleLog:
		return nil, newErr(ErrKindInvalidPath, "console.log is read-only")
	case KindPlan:
		v.mu.Lock()
		defer v.mu.Unlock()
		key := pageKey(p.Domain, p.URLPath)
		cur := v.plans[key]
		curVer := 0
		if cur != nil {
			curVer = cur.Version
		}
		if !versionOK(expectedVersion, curVer, cur != nil) {
			return nil, versionMismatch(expectedVersion, curVer)
		}
		newVer := curVer + 1
		v.plans[key] = &File{Content: content, Version: newVer, Modified: now(), Created: createdOr(cur), Enabled: true}
		return &WriteResult{Version: newVer}, nil
	case KindScript, KindStyle:
		return v.writeStoredFile(ctx, p, content, expectedVersion)
	default:
		return nil, newErr(ErrKindInvalidPath, "cannot write to %v", p.Kind)
	}
}

func (v *VFS) pageVersionGate(ctx context.Context, expectedVersion int) (int, error) {
	cur := v.Page.Version()
	if !versionOK(expectedVersion, cur, true) {
		return 0, versionMismatch(expectedVersion, cur)
	}
	return cur, nil
}

func (v *VFS) writeStoredFile(ctx context.Context, p *Path, content string, expectedVersion int) (*WriteResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	dom, err := v.Store.GetDomain(ctx, p.Domain)
	if err != nil {
		return nil, newErr(ErrKindInvalidPath, "load domain: %v", err)
	}
	if dom == nil {
		dom = newDomainRecord()
	}
	rec, ok := dom.Paths[NormalizeURLPath(p.URLPath)]
	if !ok {
		rec = newPathRecord()
		dom.Paths[NormalizeURLPath(p.URLPath)] = rec
	}
	bucket := rec.Scripts
	if p.Kind == KindStyle {
		bucket = rec.Styles
	}
	existing, exists := bucket[p.FileName]
	curVer := 0
	if exists {
		curVer = existing.Version
	}
	if !versionOK(expectedVersion, curVer, exists) {
		return nil, versionMismatch(expectedVersion, curVer)
	}
	newVer := curVer + 1
	f := &File{Content: content, Version: newVer, Modified: now(), Created: createdOr(existing), Enabled: true}
	bucket[p.FileName] = f

	if err := v.Store.PutDomain(ctx, p.Domain, dom); err != nil {
		return nil, newErr(ErrKindInvalidPath, "persist domain: %v", err)
	}

	return &WriteResult{Version: newVer}, nil
}

// versionOK implements invariant 2: Write/Edit succeed iff the caller's
// expectedVersion equals the current version, or expectedVersion=0 and no
// file exists yet.
func versionOK(expected, current int, exists bool) bool {
	if expected == 0 {
		return !exists
	}
	return exists && expected == current
}

func createdOr(f *File) time.Time {
	if f != nil {
		return f.Created
	}
	return now()
}

var now = time.Now // overridable in tests

func splitDataURL(dataURL string) (mediaType, b64 string) {
	const prefix = "data:"
	if !strings.HasPrefix(dataURL, prefix) {
		return "image/png", base64.StdEncoding.EncodeToString([]byte(dataURL))
	}
	rest := dataURL[len(prefix):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "image/png", rest
	}
	meta := rest[:comma]
	meta = strings.TrimSuffix(meta, ";base64")
	return meta, rest[comma+1:]
}

// EditResult is the Edit() response payload.
type EditResult struct {
	Version      int
	Replacements int
}

// Edit implements spec §4.A.2 Edit.
func (v *VFS) Edit(ctx context.Context, pathStr, old, newContent string, expectedVersion int, replaceAll bool) (*EditResult, error) {
	p, err := v.parse(pathStr)
	if err != nil {
		return nil, err
	}
	if err := v.checkDomain(p); err != nil {
		return nil, err
	}

	switch p.Kind {
	case KindPageHTML:
		if _, err := v.pageVersionGate(ctx, expectedVersion); err != nil {
			return nil, err
		}
		selector, n, newVer, err := v.Page.Edit(ctx, old, newContent, replaceAll)
		if err != nil {
			return nil, err
		}
		v.recordEdit(ctx, p, selector, old, newContent)
		return &EditResult{Version: newVer, Replacements: n}, nil
	case KindScript, KindStyle:
		return v.editStoredFile(ctx, p, old, newContent, expectedVersion, replaceAll)
	case KindPlan:
		return v.editPlan(p, old, newContent, expectedVersion, replaceAll)
	default:
		return nil, newErr(ErrKindInvalidPath, "cannot edit %v", p.Kind)
	}
}

func (v *VFS) editStoredFile(ctx context.Context, p *Path, old, newContent string, expectedVersion int, replaceAll bool) (*EditResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	dom, err := v.Store.GetDomain(ctx, p.Domain)
	if err != nil || dom == nil {
		return nil, newErr(ErrKindNotFound, "no files for domain %q", p.Domain)
	}
	rec := findRecord(dom, p.URLPath)
	if rec == nil {
		return nil, newErr(ErrKindNotFound, "no files at %s%s", p.Domain, p.URLPath)
	}
	bucket := rec.Scripts
	if p.Kind == KindStyle {
		bucket = rec.Styles
	}
	f, ok := bucket[p.FileName]
	if !ok {
		return nil, newErr(ErrKindNotFound, "%s not found", p.FileName)
	}
	if !versionOK(expectedVersion, f.Version, true) {
		return nil, versionMismatch(expectedVersion, f.Version)
	}
	newContentFull, n := replaceMatches(f.Content, old, newContent, replaceAll)
	if n == 0 {
		return nil, newErr(ErrKindNotFound, "old content not found")
	}
	f.Content = newContentFull
	f.Version++
	f.Modified = now()

	if err := v.Store.PutDomain(ctx, p.Domain, dom); err != nil {
		return nil, newErr(ErrKindInvalidPath, "persist domain: %v", err)
	}
	return &EditResult{Version: f.Version, Replacements: n}, nil
}

func (v *VFS) editPlan(p *Path, old, newContent string, expectedVersion int, replaceAll bool) (*EditResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := pageKey(p.Domain, p.URLPath)
	f := v.plans[key]
	if f == nil {
		return nil, newErr(ErrKindNotFound, "plan.md does not exist")
	}
	if !versionOK(expectedVersion, f.Version, true) {
		return nil, versionMismatch(expectedVersion, f.Version)
	}
	newText, n := replaceMatches(f.Content, old, newContent, replaceAll)
	if n == 0 {
		return nil, newErr(ErrKindNotFound, "old content not found")
	}
	f.Content = newText
	f.Version++
	f.Modified = now()
	return &EditResult{Version: f.Version, Replacements: n}, nil
}

func (v *VFS) recordEdit(ctx context.Context, p *Path, selector, old, newContent string) {
	dom, err := v.Store.GetDomain(ctx, p.Domain)
	if err != nil || dom == nil {
		dom = newDomainRecord()
	}
	rec, ok := dom.Paths[NormalizeURLPath(p.URLPath)]
	if !ok {
		rec = newPathRecord()
		dom.Paths[NormalizeURLPath(p.URLPath)] = rec
	}
	rec.EditRecords = append(rec.EditRecords, EditRecord{Selector: selector, OldContent: old, NewContent: newContent, Timestamp: now()})
	_ = v.Store.PutDomain(ctx, p.Domain, dom)
}

// CaptureScreenshot stores the page driver's screenshot as a new,
// version-incremented screenshot.png for the active page.
func (v *VFS) CaptureScreenshot(ctx context.Context) (*File, error) {
	dataURL, err := v.Page.Screenshot(ctx)
	if err != nil {
		return nil, newErr(ErrKindInvalidPath, "capture screenshot: %v", err)
	}
	active := v.Active()
	v.mu.Lock()
	defer v.mu.Unlock()
	key := pageKey(active.Domain, active.URLPath)
	cur := v.screenshots[key]
	ver := 1
	if cur != nil {
		ver = cur.Version + 1
	}
	f := &File{Content: dataURL, Version: ver, Modified: now(), Created: createdOr(cur), Enabled: true}
	v.screenshots[key] = f
	return f, nil
}

// DeleteFile removes a script/style from persistent store; for styles,
// the caller (browser controller) is expected to remove the injected
// <style> element as a side effect.
func (v *VFS) DeleteFile(ctx context.Context, kind FileKind, domain, urlPath, name string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	dom, err := v.Store.GetDomain(ctx, domain)
	if err != nil || dom == nil {
		return false, nil
	}
	key := NormalizeURLPath(urlPath)
	rec, ok := dom.Paths[key]
	if !ok {
		return false, nil
	}
	var bucket map[string]*File
	if kind == KindScript {
		bucket = rec.Scripts
	} else {
		bucket = rec.Styles
	}
	if _, ok := bucket[name]; !ok {
		return false, nil
	}
	delete(bucket, name)

	if len(rec.Scripts) == 0 && len(rec.Styles) == 0 {
		delete(dom.Paths, key)
	}
	if len(dom.Paths) == 0 {
		if err := v.Store.DeleteDomain(ctx, domain); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := v.Store.PutDomain(ctx, domain, dom); err != nil {
		return false, err
	}
	return true, nil
}

// FileListing describes one stored file for the UI's file-manager view
// (spec §6.3 GET_VFS_FILES).
type FileListing struct {
	Kind    FileKind `json:"kind"`
	Domain  string   `json:"domain"`
	URLPath string   `json:"urlPath"`
	Name    string   `json:"name"`
	Enabled bool     `json:"enabled"`
	Version int      `json:"version"`
}

// ListFiles enumerates every stored script/style across every domain.
func (v *VFS) ListFiles(ctx context.Context) ([]FileListing, error) {
	domains, err := v.Store.ListDomains(ctx)
	if err != nil {
		return nil, err
	}
	var out []FileListing
	for _, domain := range domains {
		dom, err := v.Store.GetDomain(ctx, domain)
		if err != nil || dom == nil {
			continue
		}
		for urlPath, rec := range dom.Paths {
			for name, f := range rec.Scripts {
				out = append(out, FileListing{Kind: KindScript, Domain: domain, URLPath: urlPath, Name: name, Enabled: f.Enabled, Version: f.Version})
			}
			for name, f := range rec.Styles {
				out = append(out, FileListing{Kind: KindStyle, Domain: domain, URLPath: urlPath, Name: name, Enabled: f.Enabled, Version: f.Version})
			}
		}
	}
	return out, nil
}

// ToggleEnabled flips a stored file's enabled flag, returning the new
// value. Reconciliation (spec §4.B.1) picks up the change on the next
// vfs:* storage event.
func (v *VFS) ToggleEnabled(ctx context.Context, kind FileKind, domain, urlPath, name string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	dom, err := v.Store.GetDomain(ctx, domain)
	if err != nil || dom == nil {
		return false, newErr(ErrKindNotFound, "no files stored for domain %q", domain)
	}
	rec, ok := dom.Paths[NormalizeURLPath(urlPath)]
	if !ok {
		return false, newErr(ErrKindNotFound, "no files stored for path %q", urlPath)
	}
	bucket := rec.Scripts
	if kind == KindStyle {
		bucket = rec.Styles
	}
	f, ok := bucket[name]
	if !ok {
		return false, newErr(ErrKindNotFound, "file %q not found", name)
	}
	f.Enabled = !f.Enabled
	f.Modified = now()
	if err := v.Store.PutDomain(ctx, domain, dom); err != nil {
		return false, err
	}
	return f.Enabled, nil
}

// SetAllEnabled sets every stored script and style's enabled flag across
// every domain to the same value (spec §6.3 SET_ALL_VFS_FILES_ENABLED).
func (v *VFS) SetAllEnabled(ctx context.Context, enabled bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	domains, err := v.Store.ListDomains(ctx)
	if err != nil {
		return err
	}
	for _, domain := range domains {
		dom, err := v.Store.GetDomain(ctx, domain)
		if err != nil || dom == nil {
			continue
		}
		changed := false
		for _, rec := range dom.Paths {
			for _, f := range rec.Scripts {
				if f.Enabled != enabled {
					f.Enabled = enabled
					f.Modified = now()
					changed = true
				}
			}
			for _, f := range rec.Styles {
				if f.Enabled != enabled {
					f.Enabled = enabled
					f.Modified = now()
					changed = true
				}
			}
		}
		if changed {
			if err := v.Store.PutDomain(ctx, domain, dom); err != nil {
				return err
			}
		}
	}
	return nil
}

// Exec reads the file at scriptPath and returns its content so the caller
// can schedule it for principal-world execution (§4.D.3); the VFS itself
// does not execute script content.
func (v *VFS) Exec(ctx context.Context, scriptPath string) (string, error) {
	res, err := v.Read(ctx, scriptPath, nil, nil)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

package browser

import (
	"fmt"

	"github.com/chebykinn/browser-code/internal/scripts"
	"github.com/chebykinn/browser-code/internal/tools"
)

var (
	_ scripts.Registrar       = (*Controller)(nil)
	_ tools.MainWorldExecutor = (*Controller)(nil)
)

// RegisterPersistentScript installs code under EvalOnNewDocument, keyed
// by id, so it re-runs on every subsequent navigation. Re-registering an
// id first unregisters the prior instance, matching the "full
// unregister-then-register" reconciliation philosophy (spec §9).
func (c *Controller) RegisterPersistentScript(id, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remove, ok := c.registered[id]; ok {
		_ = remove()
		delete(c.registered, id)
	}

	remove, err := c.page.EvalOnNewDocument(code)
	if err != nil {
		return fmt.Errorf("register script %q: %w", id, err)
	}
	c.registered[id] = remove
	return nil
}

// UnregisterPersistentScript removes a previously-registered script by id.
// Unregistering an id that was never registered is a no-op (best-effort).
func (c *Controller) UnregisterPersistentScript(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	remove, ok := c.registered[id]
	if !ok {
		return nil
	}
	delete(c.registered, id)
	return remove()
}

// RegisteredIDs returns the set of currently-registered script ids, used
// by the reconciler's idempotence check (spec §8 property 6).
func (c *Controller) RegisteredIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.registered))
	for id := range c.registered {
		ids = append(ids, id)
	}
	return ids
}

// InjectStyle inserts or replaces a <style id="..."> element derived
// from name, implementing style injection idempotence (invariant 6).
func (c *Controller) InjectStyle(name, css string) error {
	id := "browser-code-style-" + sanitizeID(name)
	_, err := c.page.Eval(`(id, css) => {
		var existing = document.getElementById(id);
		if (existing) existing.remove();
		var el = document.createElement("style");
		el.id = id;
		el.textContent = css;
		document.head.appendChild(el);
	}`, id, css)
	return err
}

// RemoveStyle removes the <style> element for a deleted style file.
func (c *Controller) RemoveStyle(name string) error {
	id := "browser-code-style-" + sanitizeID(name)
	_, err := c.page.Eval(`(id) => {
		var el = document.getElementById(id);
		if (el) el.remove();
	}`, id)
	return err
}

// ExecuteInMainWorld runs code in the page's principal world (spec
// §4.D.3), returning its result or an error annotated for CSP failures.
func (c *Controller) ExecuteInMainWorld(code string) (interface{}, error) {
	res, err := c.page.Eval(code)
	if err != nil {
		if isCSPError(err) {
			return nil, fmt.Errorf("blocked by content security policy; register the script instead of relying on one-shot execution: %w", err)
		}
		return nil, err
	}
	return res.Value, nil
}

func isCSPError(err error) bool {
	msg := err.Error()
	return containsAny(msg, []string{"Content Security Policy", "CSP", "EvalError", "unsafe-eval"})
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if len(sub) <= len(s) && indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func sanitizeID(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' {
			out = append(out, ch)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

package scripts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// Reconciler diffs the desired enabled-script set (read from the
// DomainStore across all domains) against whatever is registered on the
// live page, and reconciles by a full unregister-then-register pass:
// simpler to reason about than incremental add/remove, and cheap since
// registration is just another EvalOnNewDocument call.
type Reconciler struct {
	store     vfs.DomainStore
	registrar Registrar

	mu             sync.Mutex
	injectedStyles map[string]bool // style names currently <style>-injected on the live page
}

// New builds a Reconciler over a persistent store and a live-page registrar.
func New(store vfs.DomainStore, registrar Registrar) *Reconciler {
	return &Reconciler{store: store, registrar: registrar, injectedStyles: map[string]bool{}}
}

// Reconcile re-registers every enabled script across every domain, and
// re-applies the enabled styles that match the currently active page.
// It is safe to call repeatedly; each call is idempotent against the
// current persisted state (spec §8 property 6).
func (r *Reconciler) Reconcile(ctx context.Context, active vfs.ActivePage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	domains, err := r.store.ListDomains(ctx)
	if err != nil {
		return fmt.Errorf("list domains: %w", err)
	}

	desired := map[string]string{} // id -> wrapped code
	var activeStyles map[string]*vfs.File

	for _, domain := range domains {
		rec, err := r.store.GetDomain(ctx, domain)
		if err != nil {
			slog.Warn("scripts.reconcile.get_domain_failed", "domain", domain, "error", err)
			continue
		}
		if rec == nil {
			continue
		}
		for urlPath, pathRec := range rec.Paths {
			route, err := vfs.CompileRoute(urlPath)
			if err != nil {
				slog.Warn("scripts.reconcile.bad_route", "domain", domain, "urlPath", urlPath, "error", err)
				continue
			}
			for name, file := range pathRec.Scripts {
				if !file.Enabled {
					continue
				}
				id := scriptID(domain, urlPath, name)
				wrapped, err := wrapScript(domain, route, file.Content)
				if err != nil {
					slog.Warn("scripts.reconcile.wrap_failed", "domain", domain, "urlPath", urlPath, "name", name, "error", err)
					continue
				}
				desired[id] = wrapped
			}
			if domain == active.Domain && routeMatchesActive(route, active.URLPath) {
				activeStyles = pathRec.Styles
			}
		}
	}

	if err := r.reconcileScripts(desired); err != nil {
		return err
	}
	r.reconcileStyles(activeStyles)
	return nil
}

func (r *Reconciler) reconcileScripts(desired map[string]string) error {
	current := map[string]bool{}
	for _, id := range r.registrar.RegisteredIDs() {
		current[id] = true
	}

	for id := range current {
		if _, ok := desired[id]; !ok {
			if err := r.registrar.UnregisterPersistentScript(id); err != nil {
				slog.Warn("scripts.reconcile.unregister_failed", "id", id, "error", err)
			}
		}
	}
	var firstErr error
	for id, code := range desired {
		if err := r.registrar.RegisterPersistentScript(id, code); err != nil {
			slog.Warn("scripts.reconcile.register_failed", "id", id, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("register script %s: %w", id, err)
			}
		}
	}
	return firstErr
}

func (r *Reconciler) reconcileStyles(styles map[string]*vfs.File) {
	desired := map[string]bool{}
	for name, file := range styles {
		if !file.Enabled {
			continue
		}
		desired[name] = true
		if err := r.registrar.InjectStyle(name, file.Content); err != nil {
			slog.Warn("scripts.reconcile.style_inject_failed", "name", name, "error", err)
			continue
		}
		r.injectedStyles[name] = true
	}
	for name := range r.injectedStyles {
		if !desired[name] {
			if err := r.registrar.RemoveStyle(name); err != nil {
				slog.Warn("scripts.reconcile.style_remove_failed", "name", name, "error", err)
				continue
			}
			delete(r.injectedStyles, name)
		}
	}
}

func routeMatchesActive(route *vfs.RoutePattern, activeURLPath string) bool {
	matches := vfs.FindMatchingRoutes(activeURLPath, []*vfs.RoutePattern{route})
	return len(matches) > 0
}

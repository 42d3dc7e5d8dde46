package scripts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebykinn/browser-code/internal/vfs"
)

type fakeRegistrar struct {
	registered    map[string]string
	injectedCSS   map[string]string
	unregisterErr error
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{registered: map[string]string{}, injectedCSS: map[string]string{}}
}

func (f *fakeRegistrar) RegisterPersistentScript(id, code string) error {
	f.registered[id] = code
	return nil
}

func (f *fakeRegistrar) UnregisterPersistentScript(id string) error {
	delete(f.registered, id)
	return f.unregisterErr
}

func (f *fakeRegistrar) RegisteredIDs() []string {
	ids := make([]string, 0, len(f.registered))
	for id := range f.registered {
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeRegistrar) InjectStyle(name, css string) error {
	f.injectedCSS[name] = css
	return nil
}

func (f *fakeRegistrar) RemoveStyle(name string) error {
	delete(f.injectedCSS, name)
	return nil
}

type memDomainStore struct {
	domains map[string]*vfs.DomainRecord
}

func newMemDomainStore() *memDomainStore {
	return &memDomainStore{domains: map[string]*vfs.DomainRecord{}}
}

func (s *memDomainStore) GetDomain(_ context.Context, domain string) (*vfs.DomainRecord, error) {
	return s.domains[domain], nil
}

func (s *memDomainStore) PutDomain(_ context.Context, domain string, rec *vfs.DomainRecord) error {
	s.domains[domain] = rec
	return nil
}

func (s *memDomainStore) DeleteDomain(_ context.Context, domain string) error {
	delete(s.domains, domain)
	return nil
}

func (s *memDomainStore) ListDomains(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(s.domains))
	for d := range s.domains {
		out = append(out, d)
	}
	return out, nil
}

func TestReconcile_RegistersEnabledScriptAndSkipsDisabled(t *testing.T) {
	store := newMemDomainStore()
	store.domains["shop.test"] = &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{
		"/products/[id]": {
			Scripts: map[string]*vfs.File{
				"a.js": {Content: "console.log('on')", Enabled: true},
				"b.js": {Content: "console.log('off')", Enabled: false},
			},
			Styles: map[string]*vfs.File{},
		},
	}}

	reg := newFakeRegistrar()
	r := New(store, reg)

	err := r.Reconcile(context.Background(), vfs.ActivePage{Domain: "shop.test", URLPath: "/products/42"})
	require.NoError(t, err)

	assert.Len(t, reg.registered, 1)
	for _, code := range reg.registered {
		assert.Contains(t, code, "console.log('on')")
		assert.Contains(t, code, "shop.test")
	}
}

func TestReconcile_UnregistersStaleID(t *testing.T) {
	store := newMemDomainStore()
	reg := newFakeRegistrar()
	reg.registered["stale-id"] = "old code"
	r := New(store, reg)

	err := r.Reconcile(context.Background(), vfs.ActivePage{Domain: "x.test", URLPath: "/"})
	require.NoError(t, err)
	assert.Empty(t, reg.registered)
}

func TestReconcile_InjectsAndRemovesStylesForActivePage(t *testing.T) {
	store := newMemDomainStore()
	store.domains["x.test"] = &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{
		"/": {
			Scripts: map[string]*vfs.File{},
			Styles: map[string]*vfs.File{
				"theme.css": {Content: "body{color:red}", Enabled: true},
			},
		},
	}}
	reg := newFakeRegistrar()
	r := New(store, reg)

	require.NoError(t, r.Reconcile(context.Background(), vfs.ActivePage{Domain: "x.test", URLPath: "/"}))
	assert.Equal(t, "body{color:red}", reg.injectedCSS["theme.css"])

	store.domains["x.test"].Paths["/"].Styles["theme.css"].Enabled = false
	require.NoError(t, r.Reconcile(context.Background(), vfs.ActivePage{Domain: "x.test", URLPath: "/"}))
	assert.NotContains(t, reg.injectedCSS, "theme.css")
}

func TestScriptID_DeterministicAndDistinct(t *testing.T) {
	a := scriptID("x.test", "/", "a.js")
	b := scriptID("x.test", "/", "a.js")
	c := scriptID("x.test", "/", "b.js")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVFS(body string, active ActivePage) (*VFS, *fakeDriver) {
	driver := newFakeDriver(body)
	page := NewPageDocument(driver)
	store := newMemDomainStore()
	return New(store, page, active), driver
}

func TestParsePath_AbsoluteAndRelative(t *testing.T) {
	active := &ActivePage{Domain: "x.test", URLPath: "/a/b"}

	p, err := ParsePath("/x.test/a/b/page.html", active)
	require.NoError(t, err)
	assert.Equal(t, "x.test", p.Domain)
	assert.Equal(t, "/a/b", p.URLPath)
	assert.Equal(t, KindPageHTML, p.Kind)

	p2, err := ParsePath("./page.html", active)
	require.NoError(t, err)
	assert.Equal(t, "/a/b", p2.URLPath)
	assert.Equal(t, KindPageHTML, p2.Kind)

	p3, err := ParsePath("../c/page.html", active)
	require.NoError(t, err)
	assert.Equal(t, "/a/c", p3.URLPath)

	p4, err := ParsePath("plan.md", active)
	require.NoError(t, err)
	assert.Equal(t, KindPlan, p4.Kind)
}

func TestRoutePriority_ExactBeatsDynamicBeatsCatchAll(t *testing.T) {
	patterns := []string{"/products/42", "/products/[id]", "/products/[...rest]"}
	var compiled []*RoutePattern
	for _, p := range patterns {
		rp, err := CompileRoute(p)
		require.NoError(t, err)
		compiled = append(compiled, rp)
	}
	matches := FindMatchingRoutes("/products/42", compiled)
	require.Len(t, matches, 3)
	assert.Equal(t, "/products/42", matches[0].Pattern.Pattern)
	assert.Equal(t, "/products/[id]", matches[1].Pattern.Pattern)
	assert.Equal(t, "/products/[...rest]", matches[2].Pattern.Pattern)
}

func TestWriteReadRoundTrip(t *testing.T) {
	v, _ := newTestVFS("<p>hi</p>", ActivePage{Domain: "x.test", URLPath: "/"})
	ctx := context.Background()

	wr, err := v.Write(ctx, "/x.test/scripts/a.js", "console.log(1)", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, wr.Version)

	rr, err := v.Read(ctx, "/x.test/scripts/a.js", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", rr.Content)
	assert.Equal(t, wr.Version, rr.Version)
}

func TestWrite_VersionMismatch(t *testing.T) {
	v, _ := newTestVFS("<p>hi</p>", ActivePage{Domain: "x.test", URLPath: "/"})
	ctx := context.Background()

	_, err := v.Write(ctx, "/x.test/styles/a.css", "body{}", 0)
	require.NoError(t, err)

	_, err = v.Write(ctx, "/x.test/styles/a.css", "body{color:red}", 5)
	require.Error(t, err)
	verr, ok := AsVFSError(err)
	require.True(t, ok)
	assert.Equal(t, ErrKindVersionMismatch, verr.Kind)
	assert.Equal(t, 5, verr.ExpectedVersion)
	assert.Equal(t, 1, verr.ActualVersion)
}

func TestDomainIsolation(t *testing.T) {
	v, _ := newTestVFS("<p>hi</p>", ActivePage{Domain: "x.test", URLPath: "/"})
	ctx := context.Background()

	_, err := v.Read(ctx, "/other.test/page.html", nil, nil)
	require.Error(t, err)
	verr, ok := AsVFSError(err)
	require.True(t, ok)
	assert.Equal(t, ErrKindPermissionDenied, verr.Kind)
}

func TestPageEdit_VersionMismatchAfterMutation(t *testing.T) {
	v, driver := newTestVFS("<p>old text</p>", ActivePage{Domain: "x.test", URLPath: "/"})
	ctx := context.Background()
	_ = driver

	rr1, err := v.Read(ctx, "/x.test/page.html", nil, nil)
	require.NoError(t, err)
	v1 := rr1.Version

	v.Page.ObserveMutation()

	rr2, err := v.Read(ctx, "/x.test/page.html", nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, v1, rr2.Version)

	_, err = v.Edit(ctx, "/x.test/page.html", "old text", "new text", v1, false)
	require.Error(t, err)
	verr, ok := AsVFSError(err)
	require.True(t, ok)
	assert.Equal(t, ErrKindVersionMismatch, verr.Kind)
	assert.Equal(t, v1, verr.ExpectedVersion)
	assert.Equal(t, rr2.Version, verr.ActualVersion)
}

func TestDynamicRouteResolution(t *testing.T) {
	v, _ := newTestVFS("<p>shop</p>", ActivePage{Domain: "shop.test", URLPath: "/products/42"})
	ctx := context.Background()

	_, err := v.Write(ctx, "/shop.test/products/[id]/scripts/a.js", "x=1", 0)
	require.NoError(t, err)

	entries, err := v.Ls(ctx, "/shop.test/products/42/scripts")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.js", entries[0].Name)

	rr, err := v.Read(ctx, "/shop.test/products/42/scripts/a.js", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "x=1", rr.Content)
}

func TestDeleteFile_PrunesEmptyPathAndDomain(t *testing.T) {
	v, _ := newTestVFS("<p>hi</p>", ActivePage{Domain: "x.test", URLPath: "/"})
	ctx := context.Background()

	_, err := v.Write(ctx, "/x.test/scripts/only.js", "1", 0)
	require.NoError(t, err)

	ok, err := v.DeleteFile(ctx, KindScript, "x.test", "/", "only.js")
	require.NoError(t, err)
	assert.True(t, ok)

	dom, _ := v.Store.GetDomain(ctx, "x.test")
	assert.Nil(t, dom)
}

func TestGrep_CaseInsensitiveWithContext(t *testing.T) {
	v, _ := newTestVFS("line one\nLINE TWO target\nline three", ActivePage{Domain: "x.test", URLPath: "/"})
	ctx := context.Background()

	res, err := v.Grep(ctx, "target", "/x.test/page.html", 1)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Contains(t, res.Matches[0].Text, "TWO target")
}

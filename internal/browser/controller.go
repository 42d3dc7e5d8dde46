// Package browser drives a live page over the Chrome DevTools Protocol
// via go-rod, implementing vfs.PageDriver and the persistent user-script
// registration facility the Script Lifecycle Manager reconciles against.
package browser

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// MutationHook is invoked for every observed subtree/attribute/
// characterData mutation; the agent's PageDocument wires this to
// ObserveMutation.
type MutationHook func()

// Controller attaches to one browser tab over CDP and exposes the
// primitives the VFS (document read/write/screenshot) and the Script
// Lifecycle Manager (persistent script registration) need.
type Controller struct {
	mu       sync.Mutex
	browser  *rod.Browser
	page     *rod.Page
	hook     MutationHook
	stopBind func() error

	screenshotMaxWidth int

	registered map[string]func() error // script id -> remove func
}

// Attach connects to a CDP endpoint and attaches to the tab matching
// targetURL (or the first page if targetURL is empty), retrying once on
// failure per the fabric's "inject and retry once" recovery philosophy.
// maxWidth downscales captured screenshots wider than it before encoding
// (0 disables downscaling).
func Attach(ctx context.Context, controlURL, targetURL string, timeout time.Duration, maxWidth int) (*Controller, error) {
	b := rod.New().ControlURL(controlURL).Timeout(timeout)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	var page *rod.Page
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		page, err = attachPage(b, targetURL)
		if err == nil {
			break
		}
		logAttachFailure(targetURL, err)
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("attach to tab %q: %w", targetURL, err)
	}

	c := &Controller{browser: b, page: page, registered: map[string]func() error{}, screenshotMaxWidth: maxWidth}
	return c, nil
}

func attachPage(b *rod.Browser, targetURL string) (*rod.Page, error) {
	pages, err := b.Pages()
	if err != nil {
		return nil, err
	}
	if targetURL == "" {
		if len(pages) > 0 {
			return pages[0], nil
		}
		return b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	for _, p := range pages {
		info, err := p.Info()
		if err == nil && strings.HasPrefix(info.URL, targetURL) {
			return p, nil
		}
	}
	return b.Page(proto.TargetCreateTarget{URL: targetURL})
}

// SetMutationHook installs the callback invoked on every DOM mutation
// observed via the injected MutationObserver + CDP binding.
func (c *Controller) SetMutationHook(hook MutationHook) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = hook

	const bindingName = "__browserCodeMutation"
	stop, err := c.page.Expose(bindingName, func(_ interface{}) (interface{}, error) {
		if c.hook != nil {
			c.hook()
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("expose mutation binding: %w", err)
	}
	c.stopBind = stop

	_, err = c.page.EvalOnNewDocument(fmt.Sprintf(`
		(function() {
			var send = function() { try { window.%s(1); } catch (e) {} };
			var observer = new MutationObserver(function() { send(); });
			var start = function() {
				if (!document.body) { return setTimeout(start, 10); }
				observer.observe(document.documentElement, {
					subtree: true, attributes: true, characterData: true, childList: true
				});
			};
			start();
		})();
	`, bindingName))
	if err != nil {
		return fmt.Errorf("install mutation observer: %w", err)
	}
	return nil
}

// ConsoleHook receives one captured console.* call: level ("log", "warn",
// "error", ...) and its rendered arguments joined with a space.
type ConsoleHook func(level, message string)

// WatchConsole streams the page's console.* calls to hook until ctx is
// canceled, via the CDP Runtime domain directly rather than an injected
// script — console output should keep flowing even on pages whose CSP
// would block an EvalOnNewDocument console override.
func (c *Controller) WatchConsole(ctx context.Context, hook ConsoleHook) error {
	if err := (proto.RuntimeEnable{}).Call(c.page); err != nil {
		return fmt.Errorf("enable runtime domain: %w", err)
	}
	go c.page.Context(ctx).EachEvent(func(e *proto.RuntimeConsoleAPICalled) {
		parts := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			switch {
			case arg.Description != "":
				parts = append(parts, arg.Description)
			case arg.Value != nil:
				parts = append(parts, fmt.Sprintf("%v", arg.Value))
			}
		}
		hook(string(e.Type), strings.Join(parts, " "))
	})()
	return nil
}

// CurrentURL returns the attached tab's current URL, used to seed the
// VFS's active page on startup.
func (c *Controller) CurrentURL() (string, error) {
	info, err := c.page.Info()
	if err != nil {
		return "", fmt.Errorf("read page info: %w", err)
	}
	return info.URL, nil
}

// FetchHTML implements vfs.PageDriver.
func (c *Controller) FetchHTML(ctx context.Context) (head, body string, rootAttrs map[string]string, err error) {
	res, err := c.page.Eval(`() => ({
		head: document.head ? document.head.innerHTML : "",
		body: document.body ? document.body.innerHTML : "",
		attrs: (function() {
			var out = {};
			var el = document.documentElement;
			for (var i = 0; i < el.attributes.length; i++) {
				out[el.attributes[i].name] = el.attributes[i].value;
			}
			return out;
		})()
	})`)
	if err != nil {
		return "", "", nil, err
	}
	var parsed struct {
		Head  string            `json:"head"`
		Body  string            `json:"body"`
		Attrs map[string]string `json:"attrs"`
	}
	if err := res.Value.Unmarshal(&parsed); err != nil {
		return "", "", nil, err
	}
	return parsed.Head, parsed.Body, parsed.Attrs, nil
}

// ApplyHTML implements vfs.PageDriver: replaces head/body innerHTML and
// the root element's attributes in one evaluate call.
func (c *Controller) ApplyHTML(ctx context.Context, head, body string, rootAttrs map[string]string) error {
	_, err := c.page.Eval(`(head, body, attrs) => {
		if (document.head) document.head.innerHTML = head;
		if (document.body) document.body.innerHTML = body;
		var el = document.documentElement;
		for (var k in attrs) { el.setAttribute(k, attrs[k]); }
	}`, head, body, rootAttrs)
	return err
}

// Screenshot implements vfs.PageDriver, returning a base64 data URL. The
// capture is downscaled to screenshotMaxWidth (if set and narrower than
// the page) before re-encoding, so stored screenshots stay small enough
// for repeated tool_result inlining.
func (c *Controller) Screenshot(ctx context.Context) (string, error) {
	data, err := c.page.Screenshot(false, nil)
	if err != nil {
		return "", err
	}

	if c.screenshotMaxWidth > 0 {
		if resized, ok := downscalePNG(data, c.screenshotMaxWidth); ok {
			data = resized
		}
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// downscalePNG resizes PNG-encoded image bytes to maxWidth, preserving
// aspect ratio. Returns ok=false (leaving data untouched) if decoding or
// the image is already narrower than maxWidth.
func downscalePNG(data []byte, maxWidth int) ([]byte, bool) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	if img.Bounds().Dx() <= maxWidth {
		return nil, false
	}
	resized := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// Close detaches the controller and removes the mutation binding.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopBind != nil {
		_ = c.stopBind()
	}
	return nil
}

var _ vfs.PageDriver = (*Controller)(nil)

func logAttachFailure(targetURL string, err error) {
	slog.Warn("browser.attach_failed", "target", targetURL, "error", err)
}

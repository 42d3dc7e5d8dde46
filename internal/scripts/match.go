package scripts

import (
	"encoding/json"
	"fmt"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// wrapScript produces the EvalOnNewDocument body for a persisted script:
// it only runs when the current page matches domain+urlPath (including any
// [name]/[...name] dynamic segments), and when it does, it populates
// window.__routeParams with the extracted values before running code.
//
// The route's compiled matcher uses the same constructs (literal escapes,
// "([^/]+)", "(.+)", anchors) in both Go's RE2 and JS regex dialects, so
// its source is reused directly rather than re-deriving a pattern.
func wrapScript(domain string, route *vfs.RoutePattern, code string) (string, error) {
	pathRe := route.Regexp().String()
	params, err := json.Marshal(route.ParamNames)
	if err != nil {
		return "", fmt.Errorf("marshal route param names: %w", err)
	}
	domainJSON, err := json.Marshal(domain)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`(function() {
		if (window.location.hostname !== %s) { return; }
		var re = new RegExp(%s);
		var m = re.exec(window.location.pathname);
		if (!m) { return; }
		var names = %s;
		var params = {};
		for (var i = 0; i < names.length; i++) { params[names[i]] = m[i + 1]; }
		window.__routeParams = params;
		%s
	})();`, string(domainJSON), jsStringLiteral(pathRe), string(params), code), nil
}

func jsStringLiteral(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

package scripts

import (
	"crypto/sha1"
	"encoding/hex"
)

// scriptID derives a stable registration id from (domain, urlPath, name)
// so re-reconciling the same script never registers a duplicate instance.
func scriptID(domain, urlPath, name string) string {
	h := sha1.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write([]byte(urlPath))
	h.Write([]byte{0})
	h.Write([]byte(name))
	return "bc_" + hex.EncodeToString(h.Sum(nil))[:16]
}

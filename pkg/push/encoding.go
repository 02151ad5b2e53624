package push

import (
	"encoding/base64"
	"strings"
)

// TrimEncode64 is the header value encoding used on the wire: URL-safe
// base64 with every '=' padding character removed.
func TrimEncode64(b []byte) string {
	return strings.ReplaceAll(base64.URLEncoding.EncodeToString(b), "=", "")
}

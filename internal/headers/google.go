package headers

import (
	"net/url"
	"strings"
)

// googleHosts are the push services that accept a legacy server API key.
var googleHosts = map[string]struct{}{
	"android.googleapis.com":  {},
	"gcm-http.googleapis.com": {},
	"fcm.googleapis.com":      {},
}

const (
	legacyGCMPrefix = "https://android.googleapis.com/gcm/send"
	fcmPrefix       = "https://fcm.googleapis.com/fcm/send"
)

// IsGoogleEndpoint reports whether the endpoint is served by a Google push
// service, which is the only case where an API key is sent.
func IsGoogleEndpoint(endpoint *url.URL) bool {
	if endpoint == nil || endpoint.Scheme != "https" {
		return false
	}
	_, ok := googleHosts[strings.ToLower(endpoint.Hostname())]
	return ok
}

// RewriteLegacyEndpoint maps retired GCM endpoints onto their FCM equivalent.
func RewriteLegacyEndpoint(endpoint string) string {
	if strings.HasPrefix(endpoint, legacyGCMPrefix) {
		return fcmPrefix + strings.TrimPrefix(endpoint, legacyGCMPrefix)
	}
	return endpoint
}

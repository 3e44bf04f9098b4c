package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"rankgate/pkg/requestcontext"
)

func TestParseUserAgent(t *testing.T) {
	t.Run("empty is unknown", func(t *testing.T) {
		assert.Equal(t, "Unknown Device", ParseUserAgent("  "))
	})

	t.Run("chrome on mac", func(t *testing.T) {
		got := ParseUserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.Contains(t, got, "Chrome on ")
		assert.Contains(t, got, "Mac OS X")
	})

	t.Run("safari on iphone", func(t *testing.T) {
		got := ParseUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		assert.Contains(t, got, " on ")
		assert.Contains(t, got, "iPhone")
	})

	t.Run("crawler is a bot", func(t *testing.T) {
		got := ParseUserAgent("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
		assert.Contains(t, got, "Bot ")
	})
}

func TestClientMetadataStoresDevice(t *testing.T) {
	var device string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device = requestcontext.Device(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Contains(t, device, "Firefox on ")
}

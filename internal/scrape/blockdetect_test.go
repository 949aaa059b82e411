package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want BlockType
	}{
		{"cloudflare interstitial", "<html>Checking your browser before accessing acme.com.au</html>", BlockCloudflare},
		{"cloudflare challenge", "<div>cloudflare</div><form id=challenge-form>", BlockCloudflare},
		{"recaptcha", "<html><body>Please complete the reCAPTCHA to continue</body></html>", BlockCaptcha},
		{"js shell", "<html><noscript>Enable JavaScript to continue</noscript></html>", BlockJSShell},
		{"meta refresh", `<html><head><meta http-equiv="refresh" content="0;url=/x"></head></html>`, BlockJSShell},
		{"clean page", "<html><body><h1>Acme</h1><p>We build widgets.</p></body></html>", BlockNone},
		{"empty", "", BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			blocked, bt := DetectBlock([]byte(tt.body))
			assert.Equal(t, tt.want != BlockNone, blocked)
			assert.Equal(t, tt.want, bt)
		})
	}
}

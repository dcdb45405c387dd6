package adapter

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock_Cloudflare403(t *testing.T) {
	resp := &http.Response{StatusCode: 403, Header: http.Header{"Cf-Ray": {"abc123"}}}
	blocked, bt := DetectBlock(resp, nil)
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, bt)
}

func TestDetectBlock_Cloudflare503Server(t *testing.T) {
	resp := &http.Response{StatusCode: 503, Header: http.Header{"Server": {"cloudflare"}}}
	blocked, bt := DetectBlock(resp, nil)
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, bt)
}

func TestDetectBlock_ChallengeBody(t *testing.T) {
	blocked, bt := DetectBlock(nil, []byte("<html>Checking your browser before accessing</html>"))
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, bt)
}

func TestDetectBlock_Captcha(t *testing.T) {
	body := []byte(`<html><body>Our systems have detected unusual traffic from your computer network.<div class="g-recaptcha"></div></body></html>`)
	blocked, bt := DetectBlock(&http.Response{StatusCode: 200, Header: http.Header{}}, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockCaptcha, bt)
}

func TestDetectBlock_JSShell(t *testing.T) {
	body := []byte(`<html><noscript>Please enable JavaScript to view flights.</noscript></html>`)
	blocked, bt := DetectBlock(nil, body)
	assert.True(t, blocked)
	assert.Equal(t, BlockJSShell, bt)
}

func TestDetectBlock_LargeNoscriptPageIsFine(t *testing.T) {
	body := []byte(`<html><noscript>Enable JavaScript</noscript>` + strings.Repeat("<li>row</li>", 400) + `</html>`)
	blocked, _ := DetectBlock(nil, body)
	assert.False(t, blocked)
}

func TestDetectBlock_ResultsPage(t *testing.T) {
	blocked, bt := DetectBlock(&http.Response{StatusCode: 200, Header: http.Header{}}, []byte(fixture(t, "results.html")))
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

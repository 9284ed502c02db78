package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInjectLiveReloadBeforeBodyClose(t *testing.T) {
	page := []byte("<!DOCTYPE html>\n<html><head><title>t</title></head><body><p>hi</p></body></html>\n")

	out := string(injectLiveReload(page))
	require.Contains(t, out, scriptTag+"</body>")
	require.Equal(t, 1, strings.Count(out, scriptTag))

	// Everything around the insertion is untouched.
	require.Equal(t, string(page), strings.Replace(out, scriptTag, "", 1))
}

func TestInjectLiveReloadAppendsWithoutBody(t *testing.T) {
	page := []byte("<p>fragment only</p>")

	out := string(injectLiveReload(page))
	require.True(t, strings.HasSuffix(out, scriptTag))
	require.True(t, strings.HasPrefix(out, "<p>fragment only</p>"))
}

func TestInjectLiveReloadIgnoresBodyTagInScriptText(t *testing.T) {
	// "</body>" inside script data is raw text, not a close tag; the real
	// close tag further down must get the injection.
	page := []byte(`<html><body><script>const s = "</body>";</script><p>x</p></body></html>`)

	out := string(injectLiveReload(page))
	require.Equal(t, 1, strings.Count(out, scriptTag))
	require.True(t, strings.Index(out, `<p>x</p>`) < strings.Index(out, scriptTag),
		"injection must come after the page content")
}

func TestInjectLiveReloadEmptyInput(t *testing.T) {
	out := string(injectLiveReload(nil))
	require.Equal(t, scriptTag, out)
}

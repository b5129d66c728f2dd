package devserver

import (
	"bytes"
	"embed"
	"fmt"
	"html"
)

//go:embed client.js
var static embed.FS

// ClientPath is where the embedded live-reload script is served.
const ClientPath = "/__assetgrid/client.js"

var bodyClose = []byte("</body>")

// Snippet returns the markup injected into served pages.
func Snippet(clientURL string) []byte {
	return fmt.Appendf(nil, "<script src=\"%s\"></script><script src=\"%s\"></script>",
		html.EscapeString(clientURL), ClientPath)
}

// Inject inserts snippet before the last closing body tag. Pages without
// one are returned unchanged.
func Inject(page, snippet []byte) []byte {
	idx := lastIndexFold(page, bodyClose)
	if idx < 0 {
		return page
	}
	out := make([]byte, 0, len(page)+len(snippet))
	out = append(out, page[:idx]...)
	out = append(out, snippet...)
	return append(out, page[idx:]...)
}

func lastIndexFold(s, sep []byte) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		if bytes.EqualFold(s[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}

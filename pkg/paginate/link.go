package paginate

import (
	"net/http"
	"strings"
)

// NextLink extracts the rel="next" target from an RFC 5988 Link
// header. Returns empty when there is no next page.
func NextLink(header http.Header) string {
	for _, value := range header.Values("Link") {
		for _, part := range strings.Split(value, ",") {
			segments := strings.Split(part, ";")
			if len(segments) < 2 {
				continue
			}
			target := strings.TrimSpace(segments[0])
			if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}
			for _, param := range segments[1:] {
				key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok {
					continue
				}
				if strings.TrimSpace(key) == "rel" && strings.Trim(strings.TrimSpace(val), `"`) == "next" {
					return strings.Trim(target, "<>")
				}
			}
		}
	}
	return ""
}

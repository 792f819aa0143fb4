package httputil

import "net/http"

// BrowserHeaders returns common browser-like headers for page navigation.
func BrowserHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	h.Set("Accept-Encoding", "gzip, br")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "same-origin")
	return h
}

// ApplyHeaders copies h onto req without overwriting headers already set.
func ApplyHeaders(req *http.Request, h http.Header) {
	for k, v := range h {
		if _, ok := req.Header[k]; !ok {
			req.Header[k] = v
		}
	}
}

package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/whydoesntmycode/blog/internal/feed"
	"github.com/whydoesntmycode/blog/internal/util/compression"
)

func (s *Server) serveAtom(w http.ResponseWriter, r *http.Request) {
	doc := s.posts.Feed()
	if doc == nil {
		http.Error(w, "Feed not ready", http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set(HETag, doc.ETag)
	h.Set(HVary, HAcceptEncoding)
	h.Set(HCacheControl, "public, max-age=300")

	if etagMatches(r.Header.Get(HIfNoneMatch), doc.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set(HCType, feed.ContentType)

	body := doc.Body
	if enc := negotiateEncoding(r.Header.Get(HAcceptEncoding)); enc != "" {
		if b, ok := doc.Encoded(enc); ok {
			h.Set(HContentEncoding, enc)
			body = b
		}
	}

	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// negotiateEncoding picks the first of compression.Preferred that the client accepts.
func negotiateEncoding(header string) string {
	if header == "" {
		return ""
	}

	accepted := make(map[string]bool)
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		ok := true
		if q, found := strings.CutPrefix(strings.TrimSpace(params), "q="); found {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				ok = false
			}
		}
		accepted[name] = ok
	}

	for _, c := range compression.Preferred {
		if ok, found := accepted[c.Encoding()]; found {
			if ok {
				return c.Encoding()
			}
			continue
		}
		if accepted["*"] {
			return c.Encoding()
		}
	}
	return ""
}

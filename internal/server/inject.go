package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// ReloadScriptTag is added to every HTML page the dev server returns.
const ReloadScriptTag = `<script src="/__weaving/reload.js"></script>`

const maxInjectSize = 4 << 20

// injectReloadScript buffers HTML responses and adds ReloadScriptTag
// before </body>, or at the end when the page has none.
func injectReloadScript(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		// Partial and conditional responses would skip the injected body.
		r = r.Clone(r.Context())
		for _, h := range []string{"Range", "If-Range", "If-Modified-Since", "If-None-Match"} {
			r.Header.Del(h)
		}
		injector := &reloadInjector{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(injector, r)
		injector.finalize()
	})
}

// reloadInjector wraps an http.ResponseWriter. Non-HTML responses and
// responses larger than maxInjectSize pass through untouched.
type reloadInjector struct {
	http.ResponseWriter
	statusCode    int
	buffer        []byte
	buffering     bool
	headerWritten bool
	passthrough   bool
	decided       bool
}

func (l *reloadInjector) WriteHeader(code int) {
	l.statusCode = code
	l.decide()
	if l.passthrough && !l.headerWritten {
		l.ResponseWriter.WriteHeader(code)
		l.headerWritten = true
	}
}

func (l *reloadInjector) decide() {
	if l.decided {
		return
	}
	l.decided = true
	contentType := l.Header().Get("Content-Type")
	if !strings.HasPrefix(contentType, "text/html") || l.Header().Get("Content-Encoding") != "" {
		l.passthrough = true
		return
	}
	l.buffering = true
}

func (l *reloadInjector) Write(data []byte) (int, error) {
	l.decide()
	if l.passthrough {
		if !l.headerWritten {
			l.ResponseWriter.WriteHeader(l.statusCode)
			l.headerWritten = true
		}
		return l.ResponseWriter.Write(data)
	}

	if len(l.buffer)+len(data) > maxInjectSize {
		l.passthrough = true
		l.buffering = false
		l.Header().Del("Content-Length")
		l.ResponseWriter.WriteHeader(l.statusCode)
		l.headerWritten = true
		if len(l.buffer) > 0 {
			if _, err := l.ResponseWriter.Write(l.buffer); err != nil {
				return 0, err
			}
			l.buffer = nil
		}
		return l.ResponseWriter.Write(data)
	}

	l.buffer = append(l.buffer, data...)
	return len(data), nil
}

// finalize must be called after the handler returns.
func (l *reloadInjector) finalize() {
	if !l.buffering || len(l.buffer) == 0 {
		if !l.headerWritten {
			l.ResponseWriter.WriteHeader(l.statusCode)
		}
		return
	}
	out := injectTag(l.buffer)
	l.Header().Set("Content-Length", strconv.Itoa(len(out)))
	l.ResponseWriter.WriteHeader(l.statusCode)
	_, _ = l.ResponseWriter.Write(out)
}

func injectTag(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(page, ReloadScriptTag...)
	}
	out := make([]byte, 0, len(page)+len(ReloadScriptTag))
	out = append(out, page[:idx]...)
	out = append(out, ReloadScriptTag...)
	return append(out, page[idx:]...)
}

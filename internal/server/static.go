package server

import (
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/weaving/internal/build"
)

// notFoundPage is the built page served with status 404.
const notFoundPage = "404/index.html"

// staticHandler serves the build directory.
type staticHandler struct {
	root       string
	lastReport func() *build.Report
}

func (h staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name, ok := cleanRequestPath(r.URL.Path)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if file, ok := h.resolve(name); ok {
		serveFile(w, r, file, http.StatusOK)
		return
	}
	h.notFound(w, r)
}

// cleanRequestPath rejects parent references and returns the slash-separated
// path relative to the build root.
func cleanRequestPath(p string) (string, bool) {
	if strings.ContainsRune(p, 0) || strings.Contains(p, "\\") {
		return "", false
	}
	for part := range strings.SplitSeq(p, "/") {
		if part == ".." {
			return "", false
		}
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/"), true
}

// resolve maps a request path to a file: directories serve their
// index.html, extension-less paths fall back to <path>/index.html.
func (h staticHandler) resolve(name string) (string, bool) {
	full := filepath.Join(h.root, filepath.FromSlash(name))
	info, err := os.Stat(full)
	switch {
	case err == nil && info.Mode().IsRegular():
		return full, true
	case err == nil && info.IsDir():
		return regular(filepath.Join(full, "index.html"))
	case path.Ext(name) == "":
		return regular(filepath.Join(full, "index.html"))
	default:
		return "", false
	}
}

func regular(p string) (string, bool) {
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return p, true
}

func (h staticHandler) notFound(w http.ResponseWriter, r *http.Request) {
	if file, ok := regular(filepath.Join(h.root, filepath.FromSlash(notFoundPage))); ok {
		serveFile(w, r, file, http.StatusNotFound)
		return
	}
	if h.lastReport != nil {
		if report := h.lastReport(); report != nil && report.Outcome == build.OutcomeFailed {
			renderBuildFailedPage(w, report)
			return
		}
	}
	http.NotFound(w, r)
}

// serveFile writes file with a Content-Type derived from its extension.
func serveFile(w http.ResponseWriter, r *http.Request, file string, status int) {
	f, err := os.Open(file)
	if err != nil {
		http.Error(w, "cannot open file", http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "cannot stat file", http.StatusInternalServerError)
		return
	}
	if status == http.StatusOK {
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(file))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = io.Copy(w, f)
	}
}

// renderBuildFailedPage is shown while the last build aborted and nothing
// servable exists for the request.
func renderBuildFailedPage(w http.ResponseWriter, report *build.Report) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)

	var details strings.Builder
	details.WriteString(html.EscapeString(report.Fatal))
	for _, line := range report.Diagnostics() {
		details.WriteString("\n")
		details.WriteString(html.EscapeString(line))
	}
	_, _ = fmt.Fprintf(w, `<!doctype html><html><head><meta charset="utf-8"><title>Build failed</title></head><body><h1>Build failed</h1><p>Fix the error below and save to rebuild.</p><pre>%s</pre></body></html>`, details.String())
}

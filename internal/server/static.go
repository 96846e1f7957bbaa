package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// HandleStatic
//
// GET /* → publicDir 아래의 정적 파일.
//   - "/" 는 index.html
//   - publicDir 밖을 가리키면 403
//   - 없거나 디렉토리면 404
//
// Content-Type 은 확장자 기준 (http.ServeContent).
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	reqPath := r.URL.Path
	if reqPath == "" || reqPath == "/" {
		reqPath = "/index.html"
	}

	full, ok := resolveStatic(h.publicDir, reqPath)
	if !ok {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.Mode().IsRegular() {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// resolveStatic 은 요청 경로를 publicDir 기준 절대 경로로 바꾼다.
// 결과가 publicDir 밖이면 ok=false.
func resolveStatic(publicDir, reqPath string) (string, bool) {
	root, err := filepath.Abs(publicDir)
	if err != nil {
		return "", false
	}

	rel := filepath.FromSlash(strings.TrimLeft(reqPath, "/"))
	full := filepath.Join(root, rel)

	within, err := filepath.Rel(root, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) || filepath.IsAbs(within) {
		return "", false
	}
	return full, true
}

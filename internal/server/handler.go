package server

import (
	"context"
	"errors"
	"net/http"

	"proxystat/internal/report"
	"proxystat/internal/worker"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Calculator 는 핸들러가 쓰는 계산기 기능. (worker.Calculator 가 구현)
type Calculator interface {
	Calculate(ctx context.Context) (*worker.Result, error)
	LatestFile() string
}

type Handler struct {
	calc      Calculator
	store     *worker.Store
	publicDir string
}

func NewHandler(calc Calculator, store *worker.Store, publicDir string) *Handler {
	return &Handler{
		calc:      calc,
		store:     store,
		publicDir: publicDir,
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type calculateResponse struct {
	Success bool `json:"success"`
	report.Summary
	FileName string `json:"file_name"`
}

type statusResponse struct {
	Success    bool    `json:"success"`
	LatestFile *string `json:"latest_file"`
}

// writeJSON 은 payload 를 JSON 으로 응답한다.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Message: msg})
}

// HandleCalculate
//
// POST /api/calculate
//   - 200: 요약 + 저장된 파일명
//   - 409: 이미 계산 중
//   - 500: fetch/parse/저장 실패 (첫 번째 실패 원인 메시지)
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	res, err := h.calc.Calculate(r.Context())
	if err != nil {
		if errors.Is(err, worker.ErrCalculationInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, calculateResponse{
		Success:  true,
		Summary:  res.Summary,
		FileName: res.FileName,
	})
}

// HandleStatus
//
// GET /api/status → {"success": true, "latest_file": "..." | null}
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Success: true}
	if name := h.calc.LatestFile(); name != "" {
		resp.LatestFile = &name
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDownloadLatest
//
// GET /api/download/latest
// 메모리에 latest 가 없으면 디렉토리를 다시 스캔한다.
func (h *Handler) HandleDownloadLatest(w http.ResponseWriter, r *http.Request) {
	name := h.calc.LatestFile()
	if name == "" {
		latest, err := h.store.Latest()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		name = latest
	}
	if name == "" {
		writeError(w, http.StatusNotFound, "no calculation result available")
		return
	}

	h.serveSnapshot(w, r, name)
}

// HandleDownload
//
// GET /api/download?file=<name>
//   - 400: 경로 구분자 포함, .json 아님, 빈 값
//   - 404: 파일 없음
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name, err := worker.SanitizeName(r.URL.Query().Get("file"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file parameter")
		return
	}
	h.serveSnapshot(w, r, name)
}

func (h *Handler) serveSnapshot(w http.ResponseWriter, r *http.Request, name string) {
	f, info, err := h.store.Open(name)
	switch {
	case errors.Is(err, worker.ErrNotFound):
		writeError(w, http.StatusNotFound, "file not found")
		return
	case errors.Is(err, worker.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid file parameter")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// HandleHealth 는 LB health check 용. 단순 문자열로 충분하다.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

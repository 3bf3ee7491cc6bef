// Package result 结果目录领域 - HTTP 处理
package result

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"solver-admin/internal/solver/catalog"
	"solver-admin/internal/solver/results"
)

// RunFinalizer 定义 result handler 需要的固化接口（用于测试 mock）
type RunFinalizer interface {
	Finalize(ctx context.Context, runIdentifier string) (string, error)
}

// CatalogReader 定义 result handler 需要的清单接口
type CatalogReader interface {
	ListResultFolders(ctx context.Context) ([]catalog.Entry, error)
}

// Handler 结果目录领域 HTTP 处理器
type Handler struct {
	finalizer RunFinalizer
	catalog   CatalogReader
	baseDir   string // 本地结果基目录（output/download 接口用）
}

// NewHandler 创建结果处理器
func NewHandler(finalizer *results.Finalizer, reader *catalog.Reader, baseDir string) *Handler {
	return &Handler{finalizer: finalizer, catalog: reader, baseDir: baseDir}
}

// NewHandlerWithInterfaces 使用接口创建处理器（用于测试）
func NewHandlerWithInterfaces(finalizer RunFinalizer, reader CatalogReader, baseDir string) *Handler {
	return &Handler{finalizer: finalizer, catalog: reader, baseDir: baseDir}
}

// RegisterRoutes 注册结果相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /convert/run-to-result", h.ConvertRunToResult)
	mux.HandleFunc("GET /list/result-folders", h.ListResultFolders)
	mux.HandleFunc("GET /output/{runId}", h.OutputFiles)
	mux.HandleFunc("GET /download/{runId}/{filename}", h.DownloadFile)
}

// ConvertRunToResult 将运行目录固化为编号结果目录
// GET /convert/run-to-result?runDir=<path-or-name>（别名 runId）
func (h *Handler) ConvertRunToResult(w http.ResponseWriter, r *http.Request) {
	runDir := r.URL.Query().Get("runDir")
	if runDir == "" {
		runDir = r.URL.Query().Get("runId")
	}
	if runDir == "" {
		writeError(w, http.StatusBadRequest, "runDir is required")
		return
	}

	folderName, err := h.finalizer.Finalize(r.Context(), runDir)
	if err != nil {
		switch {
		case errors.Is(err, results.ErrMissingIdentifier):
			writeError(w, http.StatusBadRequest, "runDir is required")
		case errors.Is(err, results.ErrRunNotFound):
			log.Printf("[result.convert.not_found] run=%s", runDir)
			writeError(w, http.StatusNotFound, "run directory not found")
		default:
			log.Printf("[result.convert.failed] run=%s error=%v", runDir, err)
			writeError(w, http.StatusInternalServerError, "failed to convert run to result")
		}
		return
	}

	log.Printf("[result.convert.complete] run=%s folder=%s", runDir, folderName)
	writeJSON(w, http.StatusOK, map[string]string{"folderName": folderName})
}

// ListResultFolders 列出对象存储中的结果目录摘要
// GET /list/result-folders
//
// 清单属于尽力而为的展示数据：底层列举失败时返回空列表 + 500，
// 不向调用方抛出错误体。
func (h *Handler) ListResultFolders(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.ListResultFolders(r.Context())
	if err != nil {
		log.Printf("[result.list.failed] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"folders": []catalog.Entry{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"folders": entries})
}

// outputFile 本地结果文件摘要
type outputFile struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// OutputFiles 列出本地结果/运行目录的文件
// GET /output/{runId}
func (h *Handler) OutputFiles(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runId")
	if !validSegment(runID) {
		writeError(w, http.StatusBadRequest, "invalid run identifier")
		return
	}

	entries, err := os.ReadDir(filepath.Join(h.baseDir, runID))
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "output directory not found")
			return
		}
		log.Printf("[result.output.failed] run=%s error=%v", runID, err)
		writeError(w, http.StatusInternalServerError, "failed to list output files")
		return
	}

	files := []outputFile{}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, outputFile{Name: e.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runId": runID, "files": files})
}

// DownloadFile 下载本地结果/运行目录中的单个文件
// GET /download/{runId}/{filename}
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runId")
	filename := r.PathValue("filename")
	if !validSegment(runID) || !validSegment(filename) {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	path := filepath.Join(h.baseDir, runID, filename)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}

// validSegment 校验单段路径参数，拒绝目录穿越
func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}

// ============================================================================
// 工具函数
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

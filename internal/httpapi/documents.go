package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/deepscout-ai/deepscout/internal/docstore"
)

// maxUploadBytes bounds one multipart upload request.
const maxUploadBytes = 32 << 20

// DocumentsHandler accepts document uploads and hands back the opaque
// locations the research flow uses as document references.
type DocumentsHandler struct {
	docs   *docstore.Store
	logger *zap.Logger
}

func NewDocumentsHandler(docs *docstore.Store, logger *zap.Logger) *DocumentsHandler {
	return &DocumentsHandler{docs: docs, logger: logger}
}

// RegisterRoutes registers document routes on the provided mux.
func (h *DocumentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/documents", h.handleUpload)
}

func (h *DocumentsHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, `{"error":"invalid multipart request"}`, http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, `{"error":"no files provided"}`, http.StatusBadRequest)
		return
	}

	refs := make([]docstore.DocumentRef, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			http.Error(w, `{"error":"unreadable upload"}`, http.StatusBadRequest)
			return
		}
		ref, err := h.docs.Put(fh.Filename, f)
		f.Close()
		if err != nil {
			h.logger.Error("Document store failed",
				zap.String("name", fh.Filename),
				zap.Error(err),
			)
			http.Error(w, `{"error":"failed to store document"}`, http.StatusInternalServerError)
			return
		}
		refs = append(refs, ref)
	}

	h.logger.Info("Documents stored", zap.Int("count", len(refs)))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"documents": refs})
}

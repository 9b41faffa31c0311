package http

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/aidesbz/shortlink/internal/constants"
	"github.com/aidesbz/shortlink/internal/infrastructure/logger"
	"github.com/aidesbz/shortlink/internal/processing/bulkimport"
	"github.com/aidesbz/shortlink/pkg/httputils"
	"go.uber.org/zap"
)

const (
	uploadFieldName = "xlsxFile"
	maxUploadMemory = 32 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type UploadHandler struct {
	importer *bulkimport.Importer
}

func NewUploadHandler(importer *bulkimport.Importer) *UploadHandler {
	return &UploadHandler{importer: importer}
}

// noFileResponse is the wire shape existing callers poll for when the
// multipart field is missing.
type noFileResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// Upload runs the bulk import pipeline over one uploaded workbook and streams
// the annotated copy back as a download.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httputils.RespondJSON(w, http.StatusOK, noFileResponse{
			Status:  false,
			Message: "No file uploaded",
		})
		return
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		httputils.RespondJSON(w, http.StatusOK, noFileResponse{
			Status:  false,
			Message: "No file uploaded",
		})
		return
	}
	defer file.Close()

	result, err := h.importer.Process(r.Context(), file)
	if err != nil {
		logger.Error("bulk import failed", zap.Error(err), zap.String("file", header.Filename))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	logger.Info("bulk import completed",
		zap.String("file", header.Filename),
		zap.Int("rows", result.Rows),
		zap.Int("links_created", result.Created),
	)

	filename := "parsed_" + filepath.Base(header.Filename)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(result.File.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.File.Bytes())
}

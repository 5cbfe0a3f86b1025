package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"paperchat/internal/app"
	"paperchat/internal/transport/http/response"
)

// uploadFields are the accepted multipart field names, in lookup order.
var uploadFields = []string{"paper", "file"}

type Ingestor interface {
	Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error)
}

type PaperLister interface {
	List(ctx context.Context) ([]app.PaperSummary, error)
}

type PaperHandler struct {
	ingestor       Ingestor
	papers         PaperLister
	maxUploadBytes int64
}

func NewPaperHandler(ingestor Ingestor, papers PaperLister, maxUploadBytes int64) *PaperHandler {
	return &PaperHandler{
		ingestor:       ingestor,
		papers:         papers,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload accepts a multipart form whose "paper" (or "file") part is the document.
func (h *PaperHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		// Leave room for the multipart envelope around the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	}

	var (
		fileName string
		data     []byte
		found    bool
	)
	for _, field := range uploadFields {
		file, err := c.FormFile(field)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.rejectTooLarge(c)
				return
			}
			continue
		}
		if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
			h.rejectTooLarge(c)
			return
		}

		f, err := file.Open()
		if err != nil {
			response.ErrorWithDetails(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file", err.Error())
			return
		}
		data, err = io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			response.ErrorWithDetails(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file", err.Error())
			return
		}
		fileName = file.Filename
		found = true
		break
	}
	if !found {
		response.Error(c, http.StatusBadRequest, response.CodeFileMissing, "No file uploaded")
		return
	}

	result, err := h.ingestor.Ingest(c.Request.Context(), app.IngestInput{
		FileName: fileName,
		Data:     data,
	})
	if err != nil {
		writeServiceError(c, err, "Failed to process the research paper")
		return
	}

	response.OK(c, gin.H{
		"success":    true,
		"message":    "Paper uploaded and processed successfully",
		"documentId": result.DocumentID,
		"metadata":   result.Metadata,
	})
}

func (h *PaperHandler) List(c *gin.Context) {
	papers, err := h.papers.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "Failed to retrieve papers")
		return
	}
	response.OK(c, gin.H{"papers": papers})
}

func (h *PaperHandler) rejectTooLarge(c *gin.Context) {
	response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge,
		fmt.Sprintf("file too large (max %dMB)", h.maxUploadBytes>>20))
}

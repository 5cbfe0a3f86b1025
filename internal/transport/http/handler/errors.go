package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"paperchat/internal/app"
	"paperchat/internal/repository"
	"paperchat/internal/transport/http/response"
)

// writeServiceError maps a service error to its HTTP status and error code.
// fallback is the message used for failures the client cannot act on.
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "Document not found")
	case errors.Is(err, app.ErrHistoryDisabled):
		response.Error(c, http.StatusServiceUnavailable, response.CodeHistoryDisabled, err.Error())
	case errors.Is(err, app.ErrExtraction):
		response.ErrorWithDetails(c, http.StatusInternalServerError, response.CodeExtractionFailed, fallback, err.Error())
	case errors.Is(err, app.ErrEmbedding):
		response.ErrorWithDetails(c, http.StatusInternalServerError, response.CodeEmbeddingFailed, fallback, err.Error())
	case errors.Is(err, repository.ErrPersistence):
		response.ErrorWithDetails(c, http.StatusInternalServerError, response.CodePersistenceFailed, fallback, err.Error())
	case errors.Is(err, app.ErrIngestion):
		response.ErrorWithDetails(c, http.StatusInternalServerError, response.CodeIngestionFailed, fallback, err.Error())
	case errors.Is(err, app.ErrGeneration):
		response.ErrorWithDetails(c, http.StatusInternalServerError, response.CodeGenerationFailed, fallback, err.Error())
	default:
		response.ErrorWithDetails(c, http.StatusInternalServerError, response.CodeInternalServer, fallback, err.Error())
	}
	_ = c.Error(err)
}

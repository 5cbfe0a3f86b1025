package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                = 0
	CodeBadRequest        = 40000
	CodeFileMissing       = 40001
	CodeFileTooLarge      = 40002
	CodeDocumentNotFound  = 40401
	CodeInternalServer    = 50000
	CodeExtractionFailed  = 50001
	CodeEmbeddingFailed   = 50002
	CodePersistenceFailed = 50003
	CodeGenerationFailed  = 50004
	CodeIngestionFailed   = 50005
	CodeHistoryDisabled   = 50301
)

type ErrorBody struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// OK writes data as the top-level JSON body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, ErrorBody{
		Code:  code,
		Error: message,
	})
}

func ErrorWithDetails(c *gin.Context, httpStatus, code int, message, details string) {
	c.JSON(httpStatus, ErrorBody{
		Code:    code,
		Error:   message,
		Details: details,
	})
}

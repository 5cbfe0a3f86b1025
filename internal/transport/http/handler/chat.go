package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"paperchat/internal/app"
	"paperchat/internal/model"
	"paperchat/internal/transport/http/response"
)

type Answerer interface {
	Answer(ctx context.Context, input app.AnswerInput) (*app.AnswerResult, error)
}

type HistoryReader interface {
	History(ctx context.Context, documentID string, limit int) ([]model.Exchange, error)
}

type ChatHandler struct {
	answerer Answerer
	history  HistoryReader
}

// ChatRequest accepts "input" as an alias of "question" for older clients.
type ChatRequest struct {
	Question   string `json:"question"`
	Input      string `json:"input"`
	DocumentID string `json:"documentId"`
}

func NewChatHandler(answerer Answerer, history HistoryReader) *ChatHandler {
	return &ChatHandler{answerer: answerer, history: history}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	question := req.Question
	if strings.TrimSpace(question) == "" {
		question = req.Input
	}
	if strings.TrimSpace(question) == "" || strings.TrimSpace(req.DocumentID) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "Missing required fields: question and documentId")
		return
	}

	result, err := h.answerer.Answer(c.Request.Context(), app.AnswerInput{
		DocumentID: req.DocumentID,
		Question:   question,
	})
	if err != nil {
		writeServiceError(c, err, "Failed to generate response")
		return
	}

	response.OK(c, gin.H{
		"answer":   result.Answer,
		"message":  result.Answer,
		"metadata": result.Metadata,
	})
}

func (h *ChatHandler) History(c *gin.Context) {
	documentID := strings.TrimSpace(c.Query("documentId"))
	if documentID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "documentId is required")
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	exchanges, err := h.history.History(c.Request.Context(), documentID, limit)
	if err != nil {
		writeServiceError(c, err, "Failed to load history")
		return
	}
	if exchanges == nil {
		exchanges = []model.Exchange{}
	}
	response.OK(c, gin.H{"exchanges": exchanges})
}

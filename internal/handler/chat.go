package handler

import (
	"context"
	"net/http"
	"time"

	"notebook-client/internal/model"
	"notebook-client/internal/service"
	"notebook-client/internal/utils"
	"notebook-client/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService *service.ChatService
	heartbeat   time.Duration
}

func NewChatHandler(chatService *service.ChatService, heartbeat time.Duration) *ChatHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &ChatHandler{
		chatService: chatService,
		heartbeat:   heartbeat,
	}
}

// Send streams the assistant reply as SSE "message" events carrying
// cumulative StreamChunks, followed by [DONE].
func (h *ChatHandler) Send(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	chunks, err := h.chatService.Send(ctx, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	sseWriter := utils.NewSSEWriter(c.Writer)
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				sseWriter.Close()
				return
			}
			if err := sseWriter.WriteJSON("message", chunk); err != nil {
				logger.Warnf("Failed to write SSE: %v", err)
				return
			}

		case <-heartbeat.C:
			if err := sseWriter.WriteJSON("heartbeat", gin.H{"timestamp": time.Now().Unix()}); err != nil {
				logger.Warnf("Heartbeat failed: %v", err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Events streams conversation snapshots, generating-flag changes and
// resolved citations until the client disconnects.
func (h *ChatHandler) Events(c *gin.Context) {
	conversations, stopConversations := h.chatService.SubscribeConversation()
	defer stopConversations()
	generating, stopGenerating := h.chatService.SubscribeGenerating()
	defer stopGenerating()
	citations, stopCitations := h.chatService.SubscribeCitations()
	defer stopCitations()

	sseWriter := utils.NewSSEWriter(c.Writer)
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	ctx := c.Request.Context()

	for {
		var err error
		select {
		case conv, ok := <-conversations:
			if !ok {
				sseWriter.Close()
				return
			}
			err = sseWriter.WriteJSON("conversation", model.NewConversationResponse(conv, h.chatService.Generating()))

		case flag, ok := <-generating:
			if !ok {
				sseWriter.Close()
				return
			}
			err = sseWriter.WriteJSON("generating", gin.H{"generating": flag})

		case target, ok := <-citations:
			if !ok {
				sseWriter.Close()
				return
			}
			if target.SourceID == "" {
				continue
			}
			err = sseWriter.WriteJSON("citation", target)

		case <-heartbeat.C:
			err = sseWriter.WriteJSON("heartbeat", gin.H{"timestamp": time.Now().Unix()})

		case <-ctx.Done():
			return
		}
		if err != nil {
			logger.Debugf("Event stream closed: %v", err)
			return
		}
	}
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	c.JSON(http.StatusOK, model.NewConversationResponse(h.chatService.Conversation(), h.chatService.Generating()))
}

func (h *ChatHandler) ClearAll(c *gin.Context) {
	if err := h.chatService.ClearAll(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All conversations cleared"})
}

func (h *ChatHandler) History(c *gin.Context) {
	conversations, err := h.chatService.History()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.HistoryResponse{Conversations: conversations})
}

func (h *ChatHandler) DeleteHistory(c *gin.Context) {
	if err := h.chatService.DeleteHistory(c.Param("notebook_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted"})
}

func (h *ChatHandler) ResolveCitation(c *gin.Context) {
	target, err := h.chatService.ResolveCitation(c.Request.Context(), c.Param("source_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

func (h *ChatHandler) Format(c *gin.Context) {
	var req model.FormatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": h.chatService.FormatForDisplay(req.Text)})
}

package handler

import (
	"net/http"

	"notebook-client/internal/model"
	"notebook-client/internal/notebook"
	"notebook-client/internal/service"
	"notebook-client/pkg/logger"

	"github.com/gin-gonic/gin"
)

type NotebookHandler struct {
	notebook    *notebook.Context
	chatService *service.ChatService
	noteService *service.NoteService
}

func NewNotebookHandler(nb *notebook.Context, chatService *service.ChatService, noteService *service.NoteService) *NotebookHandler {
	return &NotebookHandler{
		notebook:    nb,
		chatService: chatService,
		noteService: noteService,
	}
}

// Open switches the current notebook, restores its conversation and loads
// its notes.
func (h *NotebookHandler) Open(c *gin.Context) {
	var req model.OpenNotebookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.notebook.Open(req.NotebookID)

	conv, err := h.chatService.OpenNotebook(c.Request.Context(), req.NotebookID, req.Summary)
	if err != nil {
		respondError(c, err)
		return
	}

	notesLoaded := true
	if err := h.noteService.Load(c.Request.Context()); err != nil {
		logger.WithFields(logger.Fields{"notebook_id": req.NotebookID}).Warnf("Loading notes failed: %v", err)
		notesLoaded = false
	}

	c.JSON(http.StatusOK, gin.H{
		"notebook_id":  req.NotebookID,
		"conversation": model.NewConversationResponse(conv, h.chatService.Generating()),
		"notes":        h.noteService.Notes(),
		"notes_loaded": notesLoaded,
	})
}

func (h *NotebookHandler) SelectSources(c *gin.Context) {
	var req model.SelectSourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.notebook.Select(req.FileIDs)
	c.JSON(http.StatusOK, gin.H{"file_ids": h.notebook.SelectedSources()})
}

func (h *NotebookHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notebook_id": h.notebook.NotebookID(),
		"file_ids":    h.notebook.SelectedSources(),
	})
}

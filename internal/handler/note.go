package handler

import (
	"fmt"
	"net/http"

	"notebook-client/internal/model"
	"notebook-client/internal/service"
	"notebook-client/internal/storage"
	"notebook-client/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type NoteHandler struct {
	noteService *service.NoteService
	audio       storage.AudioStore
}

func NewNoteHandler(noteService *service.NoteService, audio storage.AudioStore) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
		audio:       audio,
	}
}

func (h *NoteHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, model.NotesResponse{Notes: h.noteService.Notes()})
}

func (h *NoteHandler) Get(c *gin.Context) {
	note, err := h.noteService.Note(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NoteResponse{NoteArtifact: note, Polling: h.noteService.Polling(note.ID)})
}

func (h *NoteHandler) Create(c *gin.Context) {
	var req model.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	noteType, ok := model.ParseNoteType(req.Type)
	if !ok {
		respondError(c, &model.ValidationError{Message: fmt.Sprintf("unknown note type %q", req.Type)})
		return
	}
	params, err := model.ParseNoteParameters(noteType, req.Parameters)
	if err != nil {
		respondError(c, err)
		return
	}

	id, err := h.noteService.Create(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, model.CreateNoteResponse{ID: id})
}

func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.noteService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note deleted"})
}

func (h *NoteHandler) Audio(c *gin.Context) {
	data, err := h.audio.Load(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", data)
}

// Feed pushes every collection snapshot to a websocket client until it
// disconnects.
func (h *NoteHandler) Feed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("Could not upgrade notes feed: %v", err)
		return
	}
	defer conn.Close()

	snapshots, unsubscribe := h.noteService.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case notes, ok := <-snapshots:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"))
				return
			}
			if err := conn.WriteJSON(model.NotesResponse{Notes: notes}); err != nil {
				logger.Debugf("Notes feed closed: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}

package handler

import "github.com/gin-gonic/gin"

// Register mounts the gateway API on api.
func Register(api *gin.RouterGroup, chat *ChatHandler, nb *NotebookHandler, notes *NoteHandler) {
	chatGroup := api.Group("/chat")
	{
		chatGroup.GET("", chat.GetConversation)
		chatGroup.POST("/send", chat.Send)
		chatGroup.GET("/events", chat.Events)
		chatGroup.POST("/clear", chat.ClearAll)
		chatGroup.GET("/history", chat.History)
		chatGroup.DELETE("/history/:notebook_id", chat.DeleteHistory)
		chatGroup.GET("/citations/:source_id", chat.ResolveCitation)
		chatGroup.POST("/format", chat.Format)
	}

	notebookGroup := api.Group("/notebook")
	{
		notebookGroup.GET("", nb.Get)
		notebookGroup.POST("/open", nb.Open)
		notebookGroup.PUT("/sources", nb.SelectSources)
	}

	noteGroup := api.Group("/notes")
	{
		noteGroup.GET("", notes.List)
		noteGroup.POST("", notes.Create)
		noteGroup.GET("/ws", notes.Feed)
		noteGroup.GET("/:id", notes.Get)
		noteGroup.DELETE("/:id", notes.Delete)
		noteGroup.GET("/:id/audio", notes.Audio)
	}
}

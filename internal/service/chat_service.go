package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"notebook-client/internal/broadcast"
	"notebook-client/internal/model"
	"notebook-client/internal/notebook"
	"notebook-client/internal/storage"
	"notebook-client/internal/utils"
	"notebook-client/pkg/logger"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const deltaPath = "choices.0.delta.content"

// ChatBackend is the part of the backend API used by ChatService.
type ChatBackend interface {
	Query(ctx context.Context, req model.QueryRequest) (io.ReadCloser, error)
	Chunk(ctx context.Context, id string) (model.CitationTarget, error)
	CreateChat(ctx context.Context, notebookID string) (string, error)
	GetChat(ctx context.Context, notebookID string) ([]model.Message, error)
}

type ChatOptions struct {
	// HandshakeTimeout bounds loading a notebook's history.
	HandshakeTimeout time.Duration
	// Language selects the transport error shown in place of a reply.
	Language    string
	TitleLength int
}

var transportErrors = map[string]string{
	"en": "Sorry, there was an error communicating with the API. Please check your connection and API settings.",
	"es": "Lo siento, hubo un error comunicándose con la API.",
	"eu": "Errorea gertatu da APIarekin komunikatzean.",
}

// ChatService owns the current conversation. It is the only writer of the
// conversation; observers receive snapshots that must not be modified.
type ChatService struct {
	backend   ChatBackend
	storage   storage.Storage
	notebook  *notebook.Context
	formatter *Formatter
	opts      ChatOptions

	mu           sync.Mutex
	conv         *model.Conversation
	generating   bool
	cancelStream context.CancelFunc
	closed       bool

	conversation *broadcast.Subject[*model.Conversation]
	generatingCh *broadcast.Subject[bool]
	citations    *broadcast.Subject[model.CitationTarget]
}

func NewChatService(backend ChatBackend, store storage.Storage, nb *notebook.Context, opts ChatOptions) *ChatService {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	if opts.TitleLength <= 0 {
		opts.TitleLength = 30
	}
	if _, ok := transportErrors[opts.Language]; !ok {
		opts.Language = "en"
	}

	return &ChatService{
		backend:      backend,
		storage:      store,
		notebook:     nb,
		formatter:    NewFormatter(),
		opts:         opts,
		conversation: broadcast.NewSubject[*model.Conversation](nil),
		generatingCh: broadcast.NewSubject(false),
		citations:    broadcast.NewSubject(model.CitationTarget{}),
	}
}

// Conversation returns the current conversation snapshot, or nil.
func (s *ChatService) Conversation() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv
}

func (s *ChatService) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// SubscribeConversation streams conversation snapshots, starting with the current one.
func (s *ChatService) SubscribeConversation() (<-chan *model.Conversation, func()) {
	return s.conversation.Subscribe()
}

func (s *ChatService) SubscribeGenerating() (<-chan bool, func()) {
	return s.generatingCh.Subscribe()
}

// SubscribeCitations streams resolved citations for the document viewer.
// The first value received is the zero target.
func (s *ChatService) SubscribeCitations() (<-chan model.CitationTarget, func()) {
	return s.citations.Subscribe()
}

// FormatForDisplay renders assistant text as sanitised HTML.
func (s *ChatService) FormatForDisplay(text string) string {
	return s.formatter.Format(text)
}

// Send appends the user message and an empty assistant placeholder, then
// streams the answer. Every chunk carries the full text so far and is
// applied to the conversation before it is delivered. Exactly one chunk
// has IsComplete set and it is always the last one. The channel is closed
// afterwards, or early if ctx is cancelled.
func (s *ChatService) Send(ctx context.Context, text string) (<-chan model.StreamChunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.generating {
		s.mu.Unlock()
		return nil, ErrGenerating
	}

	now := time.Now()
	conv := s.conv.Clone()
	if conv == nil {
		conv = s.newConversation(s.notebook.NotebookID())
	}
	if conv.Title == model.DefaultTitle && !hasUserMessage(conv) {
		conv.Title = model.TitleFromMessage(text, s.opts.TitleLength)
	}
	placeholder := model.Message{ID: uuid.New().String(), Role: model.RoleAssistant, Timestamp: now}
	conv.Messages = append(conv.Messages,
		model.Message{ID: uuid.New().String(), Role: model.RoleUser, Content: text, Timestamp: now},
		placeholder,
	)
	conv.UpdatedAt = now

	streamCtx, cancel := context.WithCancel(ctx)
	s.conv = conv
	s.generating = true
	s.cancelStream = cancel
	s.conversation.Publish(conv)
	s.generatingCh.Publish(true)
	s.mu.Unlock()

	logger.WithFields(logger.Fields{"conversation_id": conv.ID, "notebook_id": conv.NotebookID}).
		Debug("opening response stream")

	out := make(chan model.StreamChunk)
	go s.stream(streamCtx, cancel, model.QueryRequest{Query: text, Collection: conv.NotebookID}, placeholder.ID, out)
	return out, nil
}

func (s *ChatService) stream(ctx context.Context, cancel context.CancelFunc, req model.QueryRequest, placeholderID string, out chan<- model.StreamChunk) {
	defer close(out)
	defer s.finishTurn(cancel)

	body, err := s.backend.Query(ctx, req)
	if err != nil {
		s.failTurn(ctx, placeholderID, err, out)
		return
	}
	defer body.Close()

	reader := utils.NewSSEReader(body)
	var content string
	for {
		payload, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.failTurn(ctx, placeholderID, err, out)
			return
		}
		if payload == utils.SSEDone {
			break
		}

		delta, ok := extractDelta(payload)
		if !ok {
			continue
		}
		content += delta

		if !s.applyContent(placeholderID, content) {
			return
		}
		if !emit(ctx, out, model.StreamChunk{Content: content}) {
			return
		}
	}

	emit(ctx, out, model.StreamChunk{Content: content, IsComplete: true})
}

// failTurn replaces the placeholder with the localised transport error and
// emits it as the terminal chunk.
func (s *ChatService) failTurn(ctx context.Context, placeholderID string, err error, out chan<- model.StreamChunk) {
	if ctx.Err() != nil {
		return
	}
	logger.Errorf("Chat stream failed: %v", err)

	msg := transportErrors[s.opts.Language]
	if !s.applyContent(placeholderID, msg) {
		return
	}
	emit(ctx, out, model.StreamChunk{Content: msg, IsComplete: true})
}

// applyContent replaces the placeholder's content with a new snapshot. It
// reports false once the placeholder is no longer the trailing message of
// the current conversation, e.g. after ClearAll or a notebook switch.
func (s *ChatService) applyContent(placeholderID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last := s.conv.Last(); last == nil || last.ID != placeholderID {
		return false
	}

	conv := s.conv.Clone()
	conv.Messages[len(conv.Messages)-1].Content = content
	conv.UpdatedAt = time.Now()
	s.conv = conv
	s.conversation.Publish(conv)
	return true
}

func (s *ChatService) finishTurn(cancel context.CancelFunc) {
	cancel()

	s.mu.Lock()
	s.generating = false
	s.cancelStream = nil
	conv := s.conv
	s.generatingCh.Publish(false)
	s.mu.Unlock()

	s.persist(conv)
}

func (s *ChatService) persist(conv *model.Conversation) {
	if s.storage == nil || conv == nil || conv.NotebookID == "" {
		return
	}
	if err := s.storage.SaveConversation(conv); err != nil {
		logger.Errorf("Failed to save conversation %s: %v", conv.ID, err)
	}
}

// OpenNotebook replaces the current conversation with the one belonging to
// notebookID. Loading the history is bounded by the handshake timeout;
// on failure a fresh conversation is started. A non-empty summary is shown
// as a leading virtual message.
func (s *ChatService) OpenNotebook(ctx context.Context, notebookID, summary string) (*model.Conversation, error) {
	if notebookID == "" {
		return nil, &model.ValidationError{Message: "notebook id is required"}
	}
	s.stopStream()

	conv := s.loadConversation(ctx, notebookID)
	if summary = strings.TrimSpace(summary); summary != "" {
		banner := model.Message{
			ID:        uuid.New().String(),
			Role:      model.RoleAssistant,
			Content:   summary,
			IsVirtual: true,
			Timestamp: conv.CreatedAt,
		}
		conv.Messages = append([]model.Message{banner}, conv.Messages...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.conv = conv
	s.conversation.Publish(conv)
	return conv, nil
}

func (s *ChatService) loadConversation(ctx context.Context, notebookID string) *model.Conversation {
	hctx, cancel := context.WithTimeout(ctx, s.opts.HandshakeTimeout)
	defer cancel()

	history, err := s.backend.GetChat(hctx, notebookID)
	if err != nil {
		logger.Warnf("Loading chat for notebook %s failed, starting a new one: %v", notebookID, err)
		cctx, cancelCreate := context.WithTimeout(ctx, s.opts.HandshakeTimeout)
		defer cancelCreate()
		if _, err := s.backend.CreateChat(cctx, notebookID); err != nil {
			logger.Warnf("Creating chat for notebook %s failed: %v", notebookID, err)
		}
		return s.newConversation(notebookID)
	}

	stored, err := s.storedConversation(notebookID)
	if err != nil && !errors.Is(err, storage.ErrConversationNotFound) {
		logger.Warnf("Reading saved conversation for notebook %s failed: %v", notebookID, err)
	}

	if len(history) == 0 {
		if stored != nil {
			return stored
		}
		return s.newConversation(notebookID)
	}

	conv := stored
	if conv == nil {
		conv = s.newConversation(notebookID)
	}
	now := time.Now()
	conv.Messages = make([]model.Message, 0, len(history))
	for _, msg := range history {
		msg.ID = uuid.New().String()
		msg.Timestamp = now
		conv.Messages = append(conv.Messages, msg)
	}
	if conv.Title == model.DefaultTitle {
		for _, msg := range conv.Messages {
			if msg.Role == model.RoleUser {
				conv.Title = model.TitleFromMessage(msg.Content, s.opts.TitleLength)
				break
			}
		}
	}
	return conv
}

func (s *ChatService) storedConversation(notebookID string) (*model.Conversation, error) {
	if s.storage == nil {
		return nil, storage.ErrConversationNotFound
	}
	return s.storage.GetConversation(notebookID)
}

// ClearAll drops the current conversation and every saved one.
func (s *ChatService) ClearAll() error {
	s.stopStream()

	s.mu.Lock()
	s.conv = nil
	s.conversation.Publish(nil)
	s.mu.Unlock()

	if s.storage == nil {
		return nil
	}
	if err := s.storage.Clear(); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	return nil
}

// History lists the saved conversations, most recently updated first,
// without their messages.
func (s *ChatService) History() ([]*model.Conversation, error) {
	if s.storage == nil {
		return []*model.Conversation{}, nil
	}
	return s.storage.ListConversations()
}

// DeleteHistory removes the saved conversation of a notebook. If that
// notebook is open its conversation starts over.
func (s *ChatService) DeleteHistory(notebookID string) error {
	if s.storage == nil {
		return storage.ErrConversationNotFound
	}
	if err := s.storage.DeleteConversation(notebookID); err != nil {
		return fmt.Errorf("delete conversation of notebook %s: %w", notebookID, err)
	}

	s.mu.Lock()
	open := s.conv != nil && s.conv.NotebookID == notebookID
	s.mu.Unlock()
	if !open {
		return nil
	}

	s.stopStream()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv != nil && s.conv.NotebookID == notebookID {
		s.conv = s.newConversation(notebookID)
		s.conversation.Publish(s.conv)
	}
	return nil
}

// ResolveCitation looks up the source chunk behind a citation and hands it
// to citation subscribers.
func (s *ChatService) ResolveCitation(ctx context.Context, sourceID string) (model.CitationTarget, error) {
	if strings.TrimSpace(sourceID) == "" {
		return model.CitationTarget{}, &model.ValidationError{Message: "source id is required"}
	}

	target, err := s.backend.Chunk(ctx, sourceID)
	if err != nil {
		return model.CitationTarget{}, fmt.Errorf("resolve citation %s: %w", sourceID, err)
	}
	s.citations.Publish(target)
	return target, nil
}

// Close stops any running stream and ends all subscriptions.
func (s *ChatService) Close() {
	s.stopStream()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.conversation.Close()
	s.generatingCh.Close()
	s.citations.Close()
}

func (s *ChatService) stopStream() {
	s.mu.Lock()
	cancel := s.cancelStream
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *ChatService) newConversation(notebookID string) *model.Conversation {
	now := time.Now()
	return &model.Conversation{
		ID:         uuid.New().String(),
		NotebookID: notebookID,
		Title:      model.DefaultTitle,
		Messages:   []model.Message{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func hasUserMessage(conv *model.Conversation) bool {
	for _, msg := range conv.Messages {
		if msg.Role == model.RoleUser {
			return true
		}
	}
	return false
}

// extractDelta returns the text delta of one stream record. Malformed JSON
// is logged and skipped.
func extractDelta(payload string) (string, bool) {
	if !gjson.Valid(payload) {
		logger.Warnf("Skipping malformed stream record: %.120s", payload)
		return "", false
	}
	delta := gjson.Get(payload, deltaPath)
	if !delta.Exists() || delta.String() == "" {
		return "", false
	}
	return delta.String(), true
}

func emit(ctx context.Context, out chan<- model.StreamChunk, chunk model.StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"notebook-client/internal/model"
	"notebook-client/internal/utils"
	"notebook-client/pkg/logger"

	"github.com/tidwall/gjson"
)

const maxErrorBody = 4096

// Client talks to the notebook backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
}

// NewClient creates a client. timeout bounds ordinary requests; streamTimeout
// bounds a whole streamed query and may be zero.
func NewClient(baseURL string, timeout, streamTimeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    utils.NewHTTPClient(timeout),
		stream:  utils.NewHTTPClient(streamTimeout),
	}
}

// Query opens the streamed answer for req. The caller must close the body.
func (c *Client) Query(ctx context.Context, req model.QueryRequest) (io.ReadCloser, error) {
	body := map[string]any{
		"query":      req.Query,
		"collection": wireID(req.Collection),
	}
	resp, err := c.do(ctx, c.stream, http.MethodPost, "/query", nil, body)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Chunk resolves a citation source id into the span of the file it refers to.
func (c *Client) Chunk(ctx context.Context, id string) (model.CitationTarget, error) {
	data, err := c.getBytes(ctx, "/chunk", url.Values{"id": {id}})
	if err != nil {
		return model.CitationTarget{}, err
	}
	res := gjson.ParseBytes(data)
	return model.CitationTarget{
		SourceID: id,
		FileID:   res.Get("file_id").String(),
		FileText: res.Get("file_text").String(),
		Offset:   res.Get("offset").Int(),
		Excerpt:  res.Get("text").String(),
	}, nil
}

// CreateNote submits a generation job and returns the id the backend assigned.
func (c *Client) CreateNote(ctx context.Context, collectionID string, fileIDs []string, params model.NoteParameters) (string, error) {
	body := params.Fields()
	body["collection_id"] = wireID(collectionID)
	ids := make([]any, len(fileIDs))
	for i, id := range fileIDs {
		ids[i] = wireID(id)
	}
	body["file_ids"] = ids

	resp, err := c.do(ctx, c.http, http.MethodPost, "/"+string(params.NoteType()), nil, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read create response: %w", err)
	}
	id := gjson.GetBytes(data, "id").String()
	if id == "" {
		return "", fmt.Errorf("backend did not return a note id for %s", params.NoteType())
	}
	return id, nil
}

func (c *Client) GetNote(ctx context.Context, id string) (model.NoteArtifact, error) {
	data, err := c.getBytes(ctx, "/note", url.Values{"id": {id}})
	if err != nil {
		return model.NoteArtifact{}, err
	}
	note := decodeNote(gjson.ParseBytes(data))
	if note.ID == "" {
		note.ID = id
	}
	return note, nil
}

// Podcast downloads the audio payload of a ready podcast note.
func (c *Client) Podcast(ctx context.Context, id string) ([]byte, error) {
	return c.getBytes(ctx, "/podcast", url.Values{"id": {id}})
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	_, err := c.getBytes(ctx, "/delete_note", url.Values{"id": {id}})
	return err
}

func (c *Client) ListNotes(ctx context.Context, notebookID string) ([]model.NoteArtifact, error) {
	data, err := c.getBytes(ctx, "/notes", url.Values{"nt_id": {notebookID}})
	if err != nil {
		return nil, err
	}
	res := gjson.ParseBytes(data)
	if !res.IsArray() {
		res = res.Get("notes")
	}
	items := res.Array()
	notes := make([]model.NoteArtifact, 0, len(items))
	for _, item := range items {
		notes = append(notes, decodeNote(item))
	}
	return notes, nil
}

// CreateChat starts a fresh server-side conversation for a notebook.
func (c *Client) CreateChat(ctx context.Context, notebookID string) (string, error) {
	data, err := c.getBytes(ctx, "/create_chat", url.Values{"nt_id": {notebookID}})
	if err != nil {
		return "", err
	}
	if msg := gjson.GetBytes(data, "error").String(); msg != "" {
		return "", fmt.Errorf("create chat: %s", msg)
	}
	return gjson.GetBytes(data, "chat_id").String(), nil
}

// GetChat returns the server-side history of a notebook's conversation.
func (c *Client) GetChat(ctx context.Context, notebookID string) ([]model.Message, error) {
	data, err := c.getBytes(ctx, "/get_chat", url.Values{"nt_id": {notebookID}})
	if err != nil {
		return nil, err
	}
	if msg := gjson.GetBytes(data, "error").String(); msg != "" {
		return nil, fmt.Errorf("get chat: %s", msg)
	}

	var history []model.Message
	gjson.GetBytes(data, "chat_history").ForEach(func(_, item gjson.Result) bool {
		role, ok := parseRole(item.Get("role").String())
		if !ok {
			return true
		}
		history = append(history, model.Message{
			Role:    role,
			Content: item.Get("content").String(),
		})
		return true
	})
	return history, nil
}

func (c *Client) getBytes(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.do(ctx, c.http, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return data, nil
}

// do sends the request and turns non-2xx responses into a *StatusError.
// On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, body any) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debugf("backend %s %s", method, endpoint)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

func decodeNote(res gjson.Result) model.NoteArtifact {
	note := model.NoteArtifact{
		ID:        res.Get("id").String(),
		Type:      model.NoteType(res.Get("type").String()),
		Name:      res.Get("name").String(),
		Content:   res.Get("content").String(),
		Status:    model.NoteStatus(res.Get("status").Int()),
		CreatedAt: parseTime(res.Get("created_at").String()),
	}
	if t, ok := model.ParseNoteType(string(note.Type)); ok {
		note.Type = t
	}
	for _, id := range res.Get("contained_file_ids").Array() {
		note.ContainedFileIDs = append(note.ContainedFileIDs, id.String())
	}
	return note
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	logger.Debugf("unrecognised timestamp %q", raw)
	return time.Time{}
}

// parseRole maps both our role names and the backend's message types.
func parseRole(raw string) (model.Role, bool) {
	switch raw {
	case "user", "human":
		return model.RoleUser, true
	case "assistant", "ai":
		return model.RoleAssistant, true
	case "system":
		return model.RoleSystem, true
	default:
		return "", false
	}
}

// wireID sends numeric ids as JSON numbers, since the backend keys
// notebooks and files by integer.
func wireID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

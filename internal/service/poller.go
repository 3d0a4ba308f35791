package service

import (
	"context"
	"sync"
	"time"

	"notebook-client/internal/backend"
	"notebook-client/internal/model"
	"notebook-client/pkg/logger"
)

// PollHandle is the cancellable status-polling task of one note.
type PollHandle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop cancels the task. It is safe to call more than once.
func (h *PollHandle) Stop() {
	h.once.Do(h.cancel)
}

// Done is closed once the polling goroutine has exited.
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// startPollingLocked registers and starts a poll handle for id. It is a
// no-op returning false if id already has one. Callers hold s.mu.
func (s *NoteService) startPollingLocked(id string) bool {
	if _, exists := s.polls[id]; exists {
		return false
	}

	ctx, cancel := context.WithCancel(s.ctx)
	h := &PollHandle{id: id, cancel: cancel, done: make(chan struct{})}
	s.polls[id] = h

	s.wg.Add(1)
	go s.poll(ctx, h)
	return true
}

func (s *NoteService) poll(ctx context.Context, h *PollHandle) {
	defer s.wg.Done()
	defer close(h.done)
	defer h.Stop()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
		if s.pollOnce(ctx, h) {
			return
		}
	}
}

// pollOnce issues one status request and reports whether polling is over.
func (s *NoteService) pollOnce(ctx context.Context, h *PollHandle) bool {
	note, err := s.backend.GetNote(ctx, h.id)
	if ctx.Err() != nil {
		return true
	}
	log := logger.WithFields(logger.Fields{"note_id": h.id})

	switch {
	case err == nil:
	case backend.IsConflict(err):
		return false
	case backend.IsNotFound(err):
		log.Info("Note vanished on the backend, removing it")
		s.removeIfRegistered(h)
		return true
	case backend.IsServerError(err):
		log.Warnf("Note generation failed: %v", err)
		s.markFailed(h)
		return true
	default:
		s.markFailed(h)
		s.onPollError(h.id, err)
		return true
	}

	switch note.Status {
	case model.NoteStatusPending:
		return false
	case model.NoteStatusFailed:
		s.applyTerminal(h, note)
		return true
	case model.NoteStatusReady:
		if s.noteType(h.id, note.Type).ProducesAudio() {
			s.attachAudio(ctx, h, note)
			return true
		}
		s.applyTerminal(h, note)
		return true
	default:
		log.Warnf("Unknown note status %d, still polling", note.Status)
		return false
	}
}

// attachAudio downloads the payload of a ready audio note. The note is
// shown as ready only once the audio is stored; until then it stays pending.
func (s *NoteService) attachAudio(ctx context.Context, h *PollHandle, note model.NoteArtifact) {
	data, err := s.backend.Podcast(ctx, h.id)
	if ctx.Err() != nil {
		return
	}
	if err == nil && s.audio != nil {
		err = s.audio.Save(h.id, data)
	}
	if err != nil {
		logger.WithFields(logger.Fields{"note_id": h.id}).Errorf("Fetching audio failed: %v", err)
		note.Status = model.NoteStatusFailed
		s.applyTerminal(h, note)
		return
	}

	note.AudioURL = s.audioURL(h.id)
	s.applyTerminal(h, note)
}

// applyTerminal merges a terminal result into the collection, provided h is
// still the registered handle for the note.
func (s *NoteService) applyTerminal(h *PollHandle, note model.NoteArtifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.retireLocked(h) {
		return
	}

	notes := make([]model.NoteArtifact, len(s.notes))
	for i, existing := range s.notes {
		if existing.ID != h.id {
			notes[i] = existing
			continue
		}
		merged := note.Clone()
		merged.ID = existing.ID
		if merged.Type == "" {
			merged.Type = existing.Type
		}
		if merged.CreatedAt.IsZero() {
			merged.CreatedAt = existing.CreatedAt
		}
		if len(merged.ContainedFileIDs) == 0 {
			merged.ContainedFileIDs = existing.ContainedFileIDs
		}
		notes[i] = merged
	}
	s.setNotesLocked(notes)
}

func (s *NoteService) markFailed(h *PollHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.retireLocked(h) {
		return
	}

	notes := make([]model.NoteArtifact, len(s.notes))
	copy(notes, s.notes)
	for i := range notes {
		if notes[i].ID == h.id {
			notes[i].Status = model.NoteStatusFailed
		}
	}
	s.setNotesLocked(notes)
}

func (s *NoteService) removeIfRegistered(h *PollHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.retireLocked(h) {
		return
	}
	s.setNotesLocked(withoutNote(s.notes, h.id))
}

// retireLocked unregisters h and reports whether it was still the active
// handle for its note. Callers hold s.mu.
func (s *NoteService) retireLocked(h *PollHandle) bool {
	if s.polls[h.id] != h {
		return false
	}
	delete(s.polls, h.id)
	h.Stop()
	return true
}

func (s *NoteService) noteType(id string, reported model.NoteType) model.NoteType {
	if reported != "" {
		return reported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.ID == id {
			return n.Type
		}
	}
	return ""
}

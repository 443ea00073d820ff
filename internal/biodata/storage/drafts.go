package storage

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/bep/debounce"

	bderrors "github.com/a3tai/mcp-biodata/internal/biodata/errors"
	"github.com/a3tai/mcp-biodata/internal/biodata/model"
)

// Persisted keys
const (
	KeyFormData         = "biodataFormData"
	KeySelectedTemplate = "selectedTemplate"
)

// DefaultAutosaveDelay is the quiet period before a draft is written
const DefaultAutosaveDelay = time.Second

// SaveStatus reports the outcome of the most recent draft write
type SaveStatus struct {
	OK      bool      `json:"ok"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// DraftStore persists the session's draft record with debounced writes.
// When the backend fails it keeps working from memory and reports the
// failure through SaveStatus.
type DraftStore struct {
	backend   Backend
	debounced func(f func())
	logger    *log.Logger
	onSave    func(SaveStatus)

	writeMu sync.Mutex // serializes backend writes

	mu         sync.Mutex
	pending    *model.Profile
	generation uint64 // bumped by Clear; stale draft writes are dropped
	memory     map[string]string
	degraded   bool
	status     SaveStatus
}

// DraftOption configures a DraftStore
type DraftOption func(*DraftStore)

// WithSaveListener registers a callback invoked after every draft write
func WithSaveListener(fn func(SaveStatus)) DraftOption {
	return func(s *DraftStore) { s.onSave = fn }
}

// WithLogger overrides the store's logger
func WithLogger(l *log.Logger) DraftOption {
	return func(s *DraftStore) { s.logger = l }
}

// NewDraftStore creates a store over backend with the given autosave delay
func NewDraftStore(backend Backend, delay time.Duration, opts ...DraftOption) *DraftStore {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	s := &DraftStore{
		backend:   backend,
		debounced: debounce.New(delay),
		logger:    log.New(os.Stderr, "[Drafts] ", log.LstdFlags),
		memory:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadProfile reads the persisted draft. Missing, unreadable or corrupt
// entries yield an all-empty record.
func (s *DraftStore) LoadProfile(ctx context.Context) model.Profile {
	raw, ok := s.get(ctx, KeyFormData)
	if !ok {
		return model.NewProfile()
	}

	var p model.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Printf("discarding corrupt draft: %v", err)
		return model.NewProfile()
	}
	return p
}

// ScheduleSave records p as the pending draft and (re)starts the autosave
// timer. Only the latest snapshot is ever written.
func (s *DraftStore) ScheduleSave(p model.Profile) {
	snapshot := p.Clone()

	s.mu.Lock()
	s.pending = &snapshot
	s.mu.Unlock()

	s.debounced(s.flushPending)
}

// Flush writes the pending draft immediately, if there is one
func (s *DraftStore) Flush(ctx context.Context) error {
	p, gen := s.takePending()
	if p == nil {
		return nil
	}
	return s.writeProfile(ctx, *p, gen)
}

// Clear drops any pending write and removes the persisted draft
func (s *DraftStore) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.pending = nil
	s.generation++
	delete(s.memory, KeyFormData)
	s.mu.Unlock()

	if err := s.backend.Delete(ctx, KeyFormData); err != nil {
		s.markDegraded()
		return bderrors.Wrap(bderrors.KindStorage, "removing draft", err)
	}
	return nil
}

// SaveTemplate persists the selected template ID immediately
func (s *DraftStore) SaveTemplate(ctx context.Context, id string) error {
	return s.set(ctx, KeySelectedTemplate, id)
}

// LoadTemplate returns the persisted template ID, if any
func (s *DraftStore) LoadTemplate(ctx context.Context) (string, bool) {
	return s.get(ctx, KeySelectedTemplate)
}

// Status returns the outcome of the most recent write
func (s *DraftStore) Status() SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Degraded reports whether the store has fallen back to memory-only operation
func (s *DraftStore) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Close flushes the pending draft and closes the backend
func (s *DraftStore) Close(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		s.logger.Printf("final draft flush failed: %v", err)
	}
	return s.backend.Close()
}

func (s *DraftStore) flushPending() {
	p, gen := s.takePending()
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.writeProfile(ctx, *p, gen); err != nil {
		s.logger.Printf("autosave failed: %v", err)
	}
}

// takePending hands out the pending draft with the generation it belongs to
func (s *DraftStore) takePending() (*model.Profile, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending
	s.pending = nil
	return p, s.generation
}

func (s *DraftStore) writeProfile(ctx context.Context, p model.Profile, gen uint64) error {
	data, err := json.Marshal(p)
	if err != nil {
		return bderrors.Wrap(bderrors.KindStorage, "encoding draft", err)
	}

	written, err := s.setDraft(ctx, string(data), gen)
	if !written && err == nil {
		return nil
	}

	status := SaveStatus{OK: err == nil, Message: "Auto-saved ✓", At: time.Now()}
	if err != nil {
		status.Message = "Save failed"
	}
	s.mu.Lock()
	s.status = status
	listener := s.onSave
	s.mu.Unlock()
	if listener != nil {
		listener(status)
	}
	return err
}

// setDraft writes the draft unless Clear has run since gen was taken
func (s *DraftStore) setDraft(ctx context.Context, value string, gen uint64) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false, nil
	}
	s.memory[KeyFormData] = value
	s.mu.Unlock()

	return true, s.store(ctx, KeyFormData, value)
}

func (s *DraftStore) set(ctx context.Context, key, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.memory[key] = value
	s.mu.Unlock()

	return s.store(ctx, key, value)
}

// store writes to the backend; callers hold writeMu
func (s *DraftStore) store(ctx context.Context, key, value string) error {
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.markDegraded()
		return bderrors.Wrap(bderrors.KindStorage, "writing "+key, err)
	}
	return nil
}

func (s *DraftStore) get(ctx context.Context, key string) (string, bool) {
	val, found, err := s.backend.Get(ctx, key)
	if err == nil && found {
		return val, true
	}
	if err != nil {
		s.logger.Printf("reading %s failed, using memory copy: %v", key, err)
		s.markDegraded()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	val, found = s.memory[key]
	return val, found
}

func (s *DraftStore) markDegraded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.degraded {
		s.logger.Printf("draft storage unavailable, continuing in memory")
	}
	s.degraded = true
}

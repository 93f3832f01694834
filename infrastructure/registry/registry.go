package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"media-ops/domain/model"
	"media-ops/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "upload:session:"
	sessionIndexKey  = "upload:sessions"
)

// UploadRegistry tracks upload sessions in memory, with optional
// write-through persistence to Redis so sessions survive a restart.
type UploadRegistry struct {
	mu            sync.RWMutex
	sessions      map[string]*model.UploadSession
	activeByVideo map[string]string
	rdb           *redis.Client
}

// NewUploadRegistry creates a registry. rdb may be nil, in which case the
// registry is memory-only.
func NewUploadRegistry(rdb *redis.Client) *UploadRegistry {
	return &UploadRegistry{
		sessions:      make(map[string]*model.UploadSession),
		activeByVideo: make(map[string]string),
		rdb:           rdb,
	}
}

// Load rehydrates sessions from Redis. Sessions that were active when the
// process died are marked failed with a restart code; their bytesSent is
// preserved so a retried upload resumes from the recorded offset.
func (r *UploadRegistry) Load(ctx context.Context) error {
	if r.rdb == nil {
		return nil
	}
	ids, err := r.rdb.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	restored := 0
	for _, id := range ids {
		raw, err := r.rdb.Get(ctx, sessionKeyPrefix+id).Result()
		if err != nil {
			continue
		}
		s := &model.UploadSession{}
		if err := json.Unmarshal([]byte(raw), s); err != nil {
			logger.GetLogger().WithField("sessionId", id).Warn("Skipping undecodable persisted session")
			continue
		}
		if !s.Status.Terminal() {
			s.Status = model.SessionFailed
			s.ErrorCode = model.ErrCodeRestart
			s.ErrorMessage = "process restarted while transfer was in flight"
			s.UpdatedAt = time.Now().UTC()
			r.persist(ctx, s)
		}
		r.sessions[s.ID] = s
		restored++
	}
	if restored > 0 {
		logger.GetLogger().WithField("count", restored).Info("Rehydrated upload sessions from Redis")
	}
	return nil
}

func (r *UploadRegistry) Create(ctx context.Context, videoID string, testMode bool) (*model.UploadSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.activeByVideo[videoID]; ok {
		return nil, fmt.Errorf("%w for video %s (session %s)", model.ErrConflict, videoID, existing)
	}
	now := time.Now().UTC()
	s := &model.UploadSession{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		Status:    model.SessionQueued,
		TestMode:  testMode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.sessions[s.ID] = s
	r.activeByVideo[videoID] = s.ID
	r.persist(ctx, s)
	return copySession(s), nil
}

func (r *UploadRegistry) Get(ctx context.Context, id string) (*model.UploadSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return copySession(s), nil
}

func (r *UploadRegistry) List(ctx context.Context) ([]*model.UploadSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.UploadSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, copySession(s))
	}
	return out, nil
}

func (r *UploadRegistry) MarkUploading(ctx context.Context, id string) error {
	return r.mutate(ctx, id, func(s *model.UploadSession) {
		s.Status = model.SessionUploading
	})
}

func (r *UploadRegistry) RecordProgress(ctx context.Context, id string, bytesSent, bytesTotal int64) error {
	return r.mutate(ctx, id, func(s *model.UploadSession) {
		if bytesTotal > s.BytesTotal {
			s.BytesTotal = bytesTotal
		}
		// bytesSent is monotonic; a stale update never rewinds it.
		if bytesSent > s.BytesSent {
			s.BytesSent = bytesSent
		}
		if s.BytesTotal > 0 && s.BytesSent > s.BytesTotal {
			s.BytesSent = s.BytesTotal
		}
	})
}

func (r *UploadRegistry) RecordAttempt(ctx context.Context, id string) error {
	return r.mutate(ctx, id, func(s *model.UploadSession) {
		s.Attempts++
	})
}

func (r *UploadRegistry) Complete(ctx context.Context, id, resultID string) error {
	return r.mutate(ctx, id, func(s *model.UploadSession) {
		s.Status = model.SessionCompleted
		s.ResultID = resultID
		s.BytesSent = s.BytesTotal
	})
}

func (r *UploadRegistry) Fail(ctx context.Context, id, code, message string) error {
	return r.mutate(ctx, id, func(s *model.UploadSession) {
		s.Status = model.SessionFailed
		s.ErrorCode = code
		s.ErrorMessage = message
	})
}

func (r *UploadRegistry) MarkCancelled(ctx context.Context, id string) error {
	return r.mutate(ctx, id, func(s *model.UploadSession) {
		s.Status = model.SessionCancelled
	})
}

func (r *UploadRegistry) RequestCancel(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false, model.ErrSessionNotFound
	}
	if s.Status.Terminal() {
		return false, nil
	}
	if !s.CancelRequested {
		s.CancelRequested = true
		s.UpdatedAt = time.Now().UTC()
		r.persist(ctx, s)
	}
	return true, nil
}

func (r *UploadRegistry) CancelAll(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, s := range r.sessions {
		if s.Status.Terminal() {
			continue
		}
		if !s.CancelRequested {
			s.CancelRequested = true
			s.UpdatedAt = time.Now().UTC()
			r.persist(ctx, s)
		}
		count++
	}
	return count, nil
}

func (r *UploadRegistry) CancelRequested(ctx context.Context, id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return ok && s.CancelRequested
}

func (r *UploadRegistry) CleanupCompleted(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if !s.Status.Terminal() || s.UpdatedAt.After(cutoff) {
			continue
		}
		delete(r.sessions, id)
		r.unpersist(ctx, id)
		removed++
	}
	return removed, nil
}

// mutate applies fn to a session under the lock. Terminal sessions are
// immutable; mutating one is a silent no-op so late progress callbacks from
// a finishing transfer loop cannot corrupt terminal state.
func (r *UploadRegistry) mutate(ctx context.Context, id string, fn func(*model.UploadSession)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return model.ErrSessionNotFound
	}
	if s.Status.Terminal() {
		return nil
	}
	fn(s)
	s.UpdatedAt = time.Now().UTC()
	if s.Status.Terminal() {
		if active, ok := r.activeByVideo[s.VideoID]; ok && active == s.ID {
			delete(r.activeByVideo, s.VideoID)
		}
	}
	r.persist(ctx, s)
	return nil
}

// persist mirrors a session to Redis, best effort. Callers hold the lock.
func (r *UploadRegistry) persist(ctx context.Context, s *model.UploadSession) {
	if r.rdb == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, sessionKeyPrefix+s.ID, raw, 0)
	pipe.SAdd(ctx, sessionIndexKey, s.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to persist upload session to Redis")
	}
}

func (r *UploadRegistry) unpersist(ctx context.Context, id string) {
	if r.rdb == nil {
		return
	}
	pipe := r.rdb.Pipeline()
	pipe.Del(ctx, sessionKeyPrefix+id)
	pipe.SRem(ctx, sessionIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to remove upload session from Redis")
	}
}

func copySession(s *model.UploadSession) *model.UploadSession {
	c := *s
	return &c
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/pkg/cache"
)

// ChangeSource delivers change events; the bus satisfies it.
type ChangeSource interface {
	Subscribe(fn func()) (unsubscribe func())
}

// ProjectAccess answers "may this user touch this project" and memoizes
// positive answers until the next change event or the TTL, whichever comes
// first. Denials are never cached.
type ProjectAccess struct {
	projects domain.ProjectRepository
	cache    *cache.Cache[*domain.Project]
	ttl      time.Duration
	unsub    func()
	logger   *slog.Logger
}

func NewProjectAccess(projects domain.ProjectRepository, changes ChangeSource, ttl time.Duration, logger *slog.Logger) *ProjectAccess {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	a := &ProjectAccess{
		projects: projects,
		cache:    cache.New[*domain.Project](),
		ttl:      ttl,
		logger:   logger,
	}
	if changes != nil {
		a.unsub = changes.Subscribe(a.cache.Clear)
	}
	return a
}

const maxAccessEntries = 4096

func accessKey(projectID, userID int64) string {
	return fmt.Sprintf("project:%d:user:%d", projectID, userID)
}

// Authorize returns the project when userID owns it, domain.ErrNotFound
// otherwise.
func (a *ProjectAccess) Authorize(ctx context.Context, projectID, userID int64) (*domain.Project, error) {
	key := accessKey(projectID, userID)
	if p, ok := a.cache.Get(key); ok {
		return p, nil
	}

	p, err := a.projects.Get(ctx, projectID, userID)
	if err != nil {
		a.logger.Debug("project access denied",
			slog.Int64("project_id", projectID),
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if a.cache.Len() >= maxAccessEntries {
		a.cache.Prune()
	}
	a.cache.Set(key, p, a.ttl)
	return p, nil
}

// Close stops listening for change events.
func (a *ProjectAccess) Close() {
	if a.unsub != nil {
		a.unsub()
	}
}

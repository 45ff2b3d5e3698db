package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/anjiri1684/matchchat/models"
	"github.com/anjiri1684/matchchat/presence"
	"github.com/anjiri1684/matchchat/repositories"
)

// PresenceService drives the registry and mirrors every reachability
// transition into the user directory and onto the live connections.
type PresenceService struct {
	registry *presence.Registry
	users    repositories.UserRepository
	log      *slog.Logger
	now      func() time.Time
}

func NewPresenceService(registry *presence.Registry, users repositories.UserRepository, log *slog.Logger) *PresenceService {
	return &PresenceService{
		registry: registry,
		users:    users,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Connect registers conn and reports whether the user just came online.
func (s *PresenceService) Connect(ctx context.Context, userID uuid.UUID, conn presence.Connection) bool {
	ctx = context.WithoutCancel(ctx)
	return s.registry.Register(userID, conn, func() {
		if err := s.users.SetOnline(ctx, userID); err != nil {
			s.log.Error("Failed to persist online status", "user_id", userID, "error", err)
		}
		s.broadcast(models.UserStatusChangedEvent{UserID: userID, IsOnline: true})
	})
}

// Disconnect unregisters conn; when it was the user's last connection the
// last-seen stamp is persisted before the offline transition is broadcast.
func (s *PresenceService) Disconnect(ctx context.Context, userID uuid.UUID, conn presence.Connection) bool {
	ctx = context.WithoutCancel(ctx)
	return s.registry.Unregister(userID, conn, func() {
		lastSeen := s.now()
		if err := s.users.SetOffline(ctx, userID, lastSeen); err != nil {
			s.log.Error("Failed to persist last seen", "user_id", userID, "error", err)
		}
		s.broadcast(models.UserStatusChangedEvent{UserID: userID, IsOnline: false, LastSeen: &lastSeen})
	})
}

func (s *PresenceService) IsOnline(userID uuid.UUID) bool {
	return s.registry.IsReachable(userID)
}

// Sweep flags offline every user the directory still believes online but
// who holds no connection in this process, which is what a restart leaves
// behind. It is exact at boot; while serving, a user connecting during the
// sweep can be flagged offline until their next transition.
func (s *PresenceService) Sweep(ctx context.Context) (int64, error) {
	return s.users.MarkOfflineExcept(ctx, s.registry.OnlineUsers(), s.now())
}

// broadcast sends the status change to every live connection. It runs inside
// the registry's transition hook so a user's online and offline events
// reach peers in order; a peer socket that stalls on write holds up that
// user's next transition for at most the connection write deadline.
// TODO: narrow to the user's match counterparts once the relationship
// service exposes them; the product decision is still open.
func (s *PresenceService) broadcast(status models.UserStatusChangedEvent) {
	for _, conn := range s.registry.All() {
		if err := conn.Emit(models.EventUserStatusChanged, status); err != nil {
			s.log.Debug("Status push failed", "connection_id", conn.ID(), "error", err)
		}
	}
}

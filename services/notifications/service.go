package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"studenttrack_go/config"
	"studenttrack_go/database"
	"studenttrack_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// queuedNotification is the compact payload stored in Redis. A single
// payload may fan out to several admin users.
type queuedNotification struct {
	UserIDs   []uint    `json:"user_ids"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const redisListKey = "notifications:queue"

// WSHub broadcasts real-time events to connected clients.
type WSHub interface {
	BroadcastToUser(userID uint, message interface{})
	Broadcast(message interface{})
}

// defaultHub lets services created in schedulers and controllers share
// one hub without wiring each instance by hand.
var defaultHub WSHub

func SetDefaultWSHub(h WSHub) {
	defaultHub = h
}

// Service creates in-app notifications, buffering through Redis when it
// is enabled and reachable. If Redis is down it falls back to a direct
// database insert.
type Service struct {
	db       *gorm.DB
	redis    *redis.Client
	useRedis bool
	wsHub    WSHub
}

func NewService() *Service {
	return &Service{
		db:       database.GetDB(),
		redis:    database.GetRedisClient(),
		useRedis: config.AppConfig != nil && config.AppConfig.UseRedisNotifications && database.GetRedisClient() != nil,
		wsHub:    defaultHub,
	}
}

func (s *Service) SetWebSocketHub(hub WSHub) {
	s.wsHub = hub
}

// Queued builds a payload for EnqueueOrCreate.
func Queued(title, message, typ string, data any) queuedNotification {
	return queuedNotification{Title: title, Message: message, Type: typ, Data: data}
}

// EnqueueOrCreate stores notifications via the Redis queue when enabled,
// otherwise inserts directly.
func (s *Service) EnqueueOrCreate(userIDs []uint, n queuedNotification) error {
	if len(userIDs) == 0 {
		return errors.New("no user ids")
	}
	n.UserIDs = userIDs
	n.CreatedAt = time.Now().UTC()

	if s.useRedis {
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err = s.redis.RPush(context.Background(), redisListKey, b).Err(); err == nil {
			return nil
		}
		logrus.WithError(err).Warn("notification queue push failed, falling back to direct insert")
	}

	return s.createDirect(userIDs, n)
}

// NotifyAdmins sends a notification to every active owner and admin.
func (s *Service) NotifyAdmins(title, message, typ string, data any) error {
	var ids []uint
	if err := s.db.Model(&models.User{}).
		Where("role IN ? AND status = ?", []string{"owner", "admin"}, "active").
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.EnqueueOrCreate(ids, Queued(title, message, typ, data))
}

// createDirect writes rows to the database and pushes them over the
// websocket hub. Used by the worker and as the Redis fallback.
func (s *Service) createDirect(userIDs []uint, n queuedNotification) error {
	if len(userIDs) == 0 {
		return nil
	}

	var dataJSON models.JSON
	if n.Data != nil {
		if b, err := json.Marshal(n.Data); err == nil {
			dataJSON = models.JSON(b)
		}
	}

	notifs := make([]models.Notification, 0, len(userIDs))
	for _, uid := range userIDs {
		notifs = append(notifs, models.Notification{
			UserID:  uid,
			Title:   n.Title,
			Message: n.Message,
			Type:    n.Type,
			Read:    false,
			Data:    dataJSON,
		})
	}

	if err := s.db.Create(&notifs).Error; err != nil {
		return err
	}

	if s.wsHub != nil {
		for _, notif := range notifs {
			s.wsHub.BroadcastToUser(notif.UserID, map[string]interface{}{
				"type": "notification",
				"data": notif,
			})
		}
	}

	return nil
}

// StartWorker polls the Redis queue and flushes pending notifications
// to the database in batches.
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		logrus.Info("redis notifications disabled, worker not started")
		return
	}
	go func() {
		logrus.Info("notification worker started")
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		batchSize := 200
		for {
			select {
			case <-stop:
				logrus.Info("notification worker stopping")
				return
			case <-ticker.C:
				s.flushBatch(ctx, batchSize)
			}
		}
	}()
}

func (s *Service) flushBatch(ctx context.Context, batchSize int) {
	if s.redis == nil {
		return
	}
	for i := 0; i < 5; i++ { // up to 5 sub-batches per tick
		vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(batchSize-1)).Result()
		if err != nil || len(vals) == 0 {
			return
		}
		// Trim immediately so a second worker instance does not replay the batch.
		if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
			logrus.WithError(err).Warn("notification queue trim failed")
		}
		for _, raw := range vals {
			var q queuedNotification
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				continue
			}
			if err := s.createDirect(q.UserIDs, q); err != nil {
				logrus.WithError(err).Error("notification insert failed")
			}
		}
		if len(vals) < batchSize {
			return
		}
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"studenttrack_go/database"
	"studenttrack_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// LogFlushService moves Redis-cached activity logs into the database
// and prunes old rows. Logs are cached under log:* keys and indexed in
// the logs:queue sorted set by the logging middleware.
type LogFlushService struct {
	redisClient *redis.Client
}

func NewLogFlushService() *LogFlushService {
	return &LogFlushService{redisClient: database.GetRedisClient()}
}

// FlushCachedLogsToDatabase drains the logs:queue index into the
// activity_logs table. Entries younger than an hour stay cached so the
// middleware's write burst is absorbed by Redis.
func (ls *LogFlushService) FlushCachedLogsToDatabase() error {
	if ls.redisClient == nil {
		return fmt.Errorf("redis client not available")
	}

	ctx := context.Background()
	cutoff := time.Now().Add(-1 * time.Hour)

	keys, err := ls.redisClient.ZRangeByScore(ctx, "logs:queue", &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", cutoff.Unix()),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to list cached logs: %v", err)
	}
	if len(keys) == 0 {
		return nil
	}

	var processed, failed int
	for _, logKey := range keys {
		logData, err := ls.redisClient.Get(ctx, logKey).Result()
		if err != nil {
			if err != redis.Nil {
				logrus.WithError(err).WithField("key", logKey).Error("failed to read cached log")
				failed++
				continue
			}
			// TTL already expired, drop the orphan index entry.
			ls.redisClient.ZRem(ctx, "logs:queue", logKey)
			continue
		}

		var activityLog models.ActivityLog
		if err := json.Unmarshal([]byte(logData), &activityLog); err != nil {
			logrus.WithError(err).WithField("key", logKey).Error("failed to unmarshal cached log")
			failed++
			continue
		}

		if err := database.DB.Create(&activityLog).Error; err != nil {
			logrus.WithError(err).Error("failed to persist activity log")
			failed++
			continue
		}

		pipeline := ls.redisClient.Pipeline()
		pipeline.Del(ctx, logKey)
		pipeline.ZRem(ctx, "logs:queue", logKey)
		if _, err = pipeline.Exec(ctx); err != nil {
			logrus.WithError(err).WithField("key", logKey).Warn("failed to remove flushed log from cache")
		}
		processed++
	}

	logrus.WithFields(logrus.Fields{"flushed": processed, "failed": failed}).Info("activity log flush finished")
	return nil
}

// PruneOldLogs deletes activity logs older than the given number of days.
func (ls *LogFlushService) PruneOldLogs(daysOld int) error {
	if daysOld < 30 {
		return fmt.Errorf("minimum retention is 30 days")
	}

	cutoff := time.Now().AddDate(0, 0, -daysOld)
	res := database.DB.Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&models.ActivityLog{})
	if res.Error != nil {
		return fmt.Errorf("failed to prune activity logs: %v", res.Error)
	}

	if res.RowsAffected > 0 {
		logrus.WithField("deleted", res.RowsAffected).Info("pruned old activity logs")
	}
	return nil
}

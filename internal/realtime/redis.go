package realtime

import (
	"github.com/redis/go-redis/v9"

	"github.com/choreista/platform_be_chores/internal/utils"
)

// NewRedis returns nil when addr is empty; notifications then stay in-process.
func NewRedis(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	utils.Logger.Infof("Redis client created (addr: %s)", addr)
	return rdb
}

// NotificationChannel is the pub/sub channel carrying a user's events.
func NotificationChannel(userID string) string {
	return "notifications:" + userID
}

package queue

import (
	"context"

	"github.com/Latte72R/typing-backend/internal/platform/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RDB *redis.Client

func ConnectRedis(logger *zap.Logger) {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx := context.Background()
	_, err := RDB.Ping(ctx).Result()
	if err != nil {
		logger.Fatal("could not connect to Redis", zap.Error(err))
	}
	logger.Info("successfully connected to Redis")
}

func CloseRedis(logger *zap.Logger) {
	if RDB != nil {
		RDB.Close()
		logger.Info("Redis connection closed")
	}
}

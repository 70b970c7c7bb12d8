package db

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/beeseek/beeseek-go/config"
	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client
var redisOnce = &sync.Once{}

func GetRedisConnection() *redis.Client {
	redisOnce.Do(func() {
		redisClient = redis.NewClient(&redis.Options{
			Addr: config.REDIS_URL,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal(err)
		}
	})

	return redisClient
}

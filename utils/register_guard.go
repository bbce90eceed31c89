package utils

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/greenify/greenify/config"
)

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

func regDayKey(ip string, now time.Time) string {
	return regKey("succday", ip, now.Format("20060102"))
}

// RegistrationAllowed reports whether ip is still under today's registration cap.
// It fails open when Redis is disabled or unreachable.
func RegistrationAllowed(ctx context.Context, ip string) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	cli := GetRedis()
	if limit <= 0 || cli == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := cli.Get(ctx, regDayKey(ip, time.Now())).Int()
	if errors.Is(err, redis.Nil) {
		return true
	}
	if err != nil {
		Sugar.Warnf("registration guard unavailable: %v", err)
		return true
	}
	return n < limit
}

// RegistrationRecorded counts a successful registration for ip until the end of the day.
func RegistrationRecorded(ctx context.Context, ip string) {
	cli := GetRedis()
	if config.Get().RegisterMaxPerIPPerDay <= 0 || cli == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	now := time.Now()
	key := regDayKey(ip, now)
	if err := cli.Incr(ctx, key).Err(); err == nil {
		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		_ = cli.ExpireAt(ctx, key, midnight).Err()
	}
}

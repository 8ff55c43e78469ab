package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis is unavailable.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// ErrNoRateLimitStore is returned when no Redis client is configured.
var ErrNoRateLimitStore = errors.New("redis client is nil")

// Limit is a fixed-window quota for one named action.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	Policy FailPolicy
}

// Per-action quotas. OTP verification and login fail closed so a Redis
// outage cannot be used to brute-force codes or passwords.
var (
	LimitRegister      = Limit{Name: "register", Max: 5, Window: 10 * time.Minute}
	LimitVerifyOTP     = Limit{Name: "verify_otp", Max: 10, Window: 10 * time.Minute, Policy: FailClosed}
	LimitResendOTP     = Limit{Name: "resend_otp", Max: 3, Window: 10 * time.Minute}
	LimitLogin         = Limit{Name: "login", Max: 10, Window: 5 * time.Minute, Policy: FailClosed}
	LimitCreatePost    = Limit{Name: "create_post", Max: 10, Window: 5 * time.Minute}
	LimitCreateComment = Limit{Name: "create_comment", Max: 20, Window: time.Minute}
	LimitFriendRequest = Limit{Name: "friend_request", Max: 5, Window: 5 * time.Minute}
	LimitReport        = Limit{Name: "report", Max: 10, Window: 10 * time.Minute}
)

// Usage is the state of one counter after a hit.
type Usage struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// rateLimitEnabled is false in test, development and stress environments.
func rateLimitEnabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return false
	}
	return true
}

// Hit counts one request by subject against l.
func (l Limit) Hit(ctx context.Context, rdb *redis.Client, subject string) (Usage, error) {
	if !rateLimitEnabled() {
		return Usage{Allowed: true, Remaining: l.Max, ResetIn: l.Window}, nil
	}
	if rdb == nil {
		return Usage{}, ErrNoRateLimitStore
	}

	key := "rl:" + l.Name + ":" + subject
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		ttl = p.PTTL(ctx, key)
		return nil
	}); err != nil {
		return Usage{}, err
	}

	// A key without expiry is either new or left behind by a failed EXPIRE.
	resetIn := ttl.Val()
	if resetIn < 0 {
		if err := rdb.PExpire(ctx, key, l.Window).Err(); err != nil {
			return Usage{}, err
		}
		resetIn = l.Window
	}

	count := int(incr.Val())
	return Usage{
		Allowed:   count <= l.Max,
		Remaining: max(l.Max-count, 0),
		ResetIn:   resetIn,
	}, nil
}

// RateLimit enforces l per authenticated user, or per client IP before login.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok {
			subject = fmt.Sprintf("user:%d", uid)
		}

		usage, err := l.Hit(c.UserContext(), rdb, subject)
		if err != nil {
			if l.Policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable; failing closed",
				"limit", l.Name, "error", err.Error())
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Service temporarily unavailable",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(usage.Remaining))
		if !usage.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(usage.ResetIn.Round(time.Second).Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		}
		return c.Next()
	}
}

package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Limiter counts messages per chat in fixed one-minute windows.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[int64]*window
}

type window struct {
	start time.Time
	count int
}

func NewLimiter(perMinute int) *Limiter {
	return &Limiter{
		limit:   perMinute,
		window:  time.Minute,
		now:     time.Now,
		windows: make(map[int64]*window),
	}
}

// Allow records one message from chatID and reports whether it is within the limit.
// A limit of zero disables limiting.
func (l *Limiter) Allow(chatID int64) (bool, int) {
	if l.limit <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[chatID]
	if !ok || now.Sub(w.start) >= l.window {
		l.sweep(now)
		w = &window{start: now}
		l.windows[chatID] = w
	}
	w.count++
	return w.count <= l.limit, w.count
}

// sweep drops expired windows so idle chats do not accumulate.
func (l *Limiter) sweep(now time.Time) {
	for id, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, id)
		}
	}
}

// RateLimit returns middleware that enforces per-minute rate limits.
func RateLimit(limiter *Limiter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			// Only rate limit messages (not callbacks or other updates)
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			if ok, count := limiter.Allow(chatID); !ok {
				slog.Debug("rate limited", "chat_id", chatID, "count", count, "limit", limiter.limit)
				if count == limiter.limit+1 {
					b.SendMessage(ctx, &bot.SendMessageParams{
						ChatID: chatID,
						Text:   "⏳ Too many requests. Please wait a moment.",
					})
				}
				return
			}

			next(ctx, b, update)
		}
	}
}

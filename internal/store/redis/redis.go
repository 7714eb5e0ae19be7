package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dkeye/roulette/internal/domain"
	"github.com/dkeye/roulette/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config represents the Redis store config structure.
type Config struct {
	Address     string `mapstructure:"address"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	Prefix      string `mapstructure:"prefix"`
	MaxMessages int64  `mapstructure:"max_messages"`
}

// Redis keeps messages in a capped stream and reports in a list.
type Redis struct {
	cfg Config
	cl  *redis.Client
	now func() time.Time
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Redis, error) {
	cl := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Address, err)
	}
	log.Info().Str("module", "store.redis").Str("addr", cfg.Address).Int("db", cfg.DB).Msg("connected")
	return NewWithClient(cl, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(cl *redis.Client, cfg Config) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "roulette"
	}
	return &Redis{cfg: cfg, cl: cl, now: time.Now}
}

func (r *Redis) MessagesKey() string { return r.cfg.Prefix + ":messages" }
func (r *Redis) ReportsKey() string  { return r.cfg.Prefix + ":reports" }

func (r *Redis) StoreMessage(ctx context.Context, sender, receiver domain.SessionID, text string) (time.Time, error) {
	ts := r.now().UTC()
	args := &redis.XAddArgs{
		Stream: r.MessagesKey(),
		Values: map[string]any{
			"sender_id":   string(sender),
			"receiver_id": string(receiver),
			"text":        text,
			"created_at":  strconv.FormatInt(ts.UnixMilli(), 10),
		},
	}
	if r.cfg.MaxMessages > 0 {
		args.MaxLen = r.cfg.MaxMessages
		args.Approx = true
	}
	if err := r.cl.XAdd(ctx, args).Err(); err != nil {
		return time.Time{}, fmt.Errorf("xadd message: %w", err)
	}
	return ts, nil
}

func (r *Redis) StoreReport(ctx context.Context, room domain.RoomID, reporter domain.SessionID, reason string) error {
	b, err := json.Marshal(store.Report{
		RoomID:     room,
		ReporterID: reporter,
		Reason:     reason,
		CreatedAt:  r.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := r.cl.RPush(ctx, r.ReportsKey(), b).Err(); err != nil {
		return fmt.Errorf("rpush report: %w", err)
	}
	return nil
}

// Messages reads back the stored messages, oldest first.
func (r *Redis) Messages(ctx context.Context) ([]store.Message, error) {
	res, err := r.cl.XRange(ctx, r.MessagesKey(), "-", "+").Result()
	if err != nil {
		return nil, err
	}
	out := make([]store.Message, 0, len(res))
	for _, x := range res {
		ms, _ := strconv.ParseInt(fmt.Sprint(x.Values["created_at"]), 10, 64)
		out = append(out, store.Message{
			SenderID:   domain.SessionID(fmt.Sprint(x.Values["sender_id"])),
			ReceiverID: domain.SessionID(fmt.Sprint(x.Values["receiver_id"])),
			Text:       fmt.Sprint(x.Values["text"]),
			CreatedAt:  time.UnixMilli(ms).UTC(),
		})
	}
	return out, nil
}

// Reports reads back the stored reports, oldest first.
func (r *Redis) Reports(ctx context.Context) ([]store.Report, error) {
	res, err := r.cl.LRange(ctx, r.ReportsKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]store.Report, 0, len(res))
	for _, raw := range res {
		var rep store.Report
		if err := json.Unmarshal([]byte(raw), &rep); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, rep)
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.cl.Close()
}

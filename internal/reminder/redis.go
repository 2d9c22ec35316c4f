package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/tabsplit/internal/models"
)

var _ Scheduler = (*RedisScheduler)(nil)

// DefaultRedisKey is the hash holding all reminders. Fire times live in a
// companion hash, DefaultRedisKey + ":fired", so that recording a dispatch
// never rewrites the reminder itself.
const DefaultRedisKey = "tabsplit:reminders"

// markFired records a fire time only while the reminder still exists, so a
// concurrent Cancel cannot be undone by the dispatcher.
var markFired = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 1 then
	return redis.call("HSET", KEYS[2], ARGV[1], ARGV[2])
end
return 0
`)

// RedisScheduler stores reminders as JSON values in a Redis hash keyed by reminder key.
type RedisScheduler struct {
	client *redis.Client
	hash   string
}

// NewRedisScheduler connects to Redis at addr and verifies the connection.
func NewRedisScheduler(ctx context.Context, addr, password string, db int) (*RedisScheduler, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisScheduler{client: client, hash: DefaultRedisKey}, nil
}

// Close closes the Redis client.
func (s *RedisScheduler) Close() error {
	return s.client.Close()
}

func (s *RedisScheduler) firedHash() string {
	return s.hash + ":fired"
}

type reminderRecord struct {
	Key      string  `json:"key"`
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	Hour     int     `json:"hour"`
	GroupID  string  `json:"group_id"`
	BillID   string  `json:"bill_id"`
	MemberID string  `json:"member_id"`
	Amount   float64 `json:"amount"`
}

func toRecord(r models.Reminder) reminderRecord {
	return reminderRecord{
		Key:      r.Key,
		Title:    r.Title,
		Body:     r.Body,
		Hour:     r.Hour,
		GroupID:  r.GroupID,
		BillID:   r.BillID,
		MemberID: r.MemberID,
		Amount:   r.Amount,
	}
}

func (rec reminderRecord) model(lastFired int64) models.Reminder {
	return models.Reminder{
		Key:       rec.Key,
		Title:     rec.Title,
		Body:      rec.Body,
		Hour:      rec.Hour,
		GroupID:   rec.GroupID,
		BillID:    rec.BillID,
		MemberID:  rec.MemberID,
		Amount:    rec.Amount,
		LastFired: lastFired,
	}
}

// ScheduleDaily stores r and its fire time in one transaction, replacing
// whatever was stored under r.Key.
func (s *RedisScheduler) ScheduleDaily(ctx context.Context, r models.Reminder) error {
	if err := validate(r); err != nil {
		return err
	}

	data, err := json.Marshal(toRecord(r))
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hash, r.Key, data)
		if r.LastFired != 0 {
			pipe.HSet(ctx, s.firedHash(), r.Key, r.LastFired)
		} else {
			pipe.HDel(ctx, s.firedHash(), r.Key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store reminder: %w", err)
	}
	return nil
}

func (s *RedisScheduler) Cancel(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.hash, key)
		pipe.HDel(ctx, s.firedHash(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}
	return nil
}

func (s *RedisScheduler) List(ctx context.Context) ([]models.Reminder, error) {
	var values, fired *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		values = pipe.HGetAll(ctx, s.hash)
		fired = pipe.HGetAll(ctx, s.firedHash())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	firedAt := fired.Val()
	list := make([]models.Reminder, 0, len(values.Val()))
	for key, raw := range values.Val() {
		var rec reminderRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode reminder %s: %w", key, err)
		}

		var lastFired int64
		if v, ok := firedAt[key]; ok {
			if lastFired, err = strconv.ParseInt(v, 10, 64); err != nil {
				return nil, fmt.Errorf("failed to decode fire time of %s: %w", key, err)
			}
		}
		list = append(list, rec.model(lastFired))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list, nil
}

// MarkFired is a no-op for reminders cancelled since they were listed.
func (s *RedisScheduler) MarkFired(ctx context.Context, key string, at int64) error {
	err := markFired.Run(ctx, s.client, []string{s.hash, s.firedHash()}, key, at).Err()
	if err != nil {
		return fmt.Errorf("failed to mark reminder %s fired: %w", key, err)
	}
	return nil
}

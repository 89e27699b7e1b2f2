package recordstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rollcall/pkg/sentinel"
)

// Redis stores each collection as a hash of rowID -> JSON values plus a list
// preserving insertion order. Like every backend behind the Store contract it
// offers no compare-and-delete; HDEL reporting zero removed fields is the
// closest thing to race detection it gives us.
type Redis struct {
	client    redis.Cmdable
	keyPrefix string
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client, keyPrefix: "rollcall"}
}

func (r *Redis) rowsKey(collection string) string {
	return fmt.Sprintf("%s:%s:rows", r.keyPrefix, collection)
}

func (r *Redis) orderKey(collection string) string {
	return fmt.Sprintf("%s:%s:order", r.keyPrefix, collection)
}

func (r *Redis) Find(ctx context.Context, collection, column, value string) (Row, error) {
	rows, err := r.Scan(ctx, collection)
	if err != nil {
		return Row{}, err
	}
	for _, row := range rows {
		if row.Values[column] == value {
			return row, nil
		}
	}
	return Row{}, fmt.Errorf("%s: no row with %s=%s: %w", collection, column, value, sentinel.ErrNotFound)
}

func (r *Redis) Append(ctx context.Context, collection string, values map[string]string) (Row, error) {
	row := Row{ID: uuid.NewString(), Values: cloneValues(values)}
	payload, err := json.Marshal(row.Values)
	if err != nil {
		return Row{}, fmt.Errorf("marshal row: %w", err)
	}
	if err := r.client.HSet(ctx, r.rowsKey(collection), row.ID, payload).Err(); err != nil {
		return Row{}, unavailable("append row", err)
	}
	if err := r.client.RPush(ctx, r.orderKey(collection), row.ID).Err(); err != nil {
		return Row{}, unavailable("append row order", err)
	}
	return row, nil
}

func (r *Redis) Delete(ctx context.Context, collection, rowID string) error {
	removed, err := r.client.HDel(ctx, r.rowsKey(collection), rowID).Result()
	if err != nil {
		return unavailable("delete row", err)
	}
	if removed == 0 {
		return fmt.Errorf("%s: row %s already removed: %w", collection, rowID, sentinel.ErrNotFound)
	}
	if err := r.client.LRem(ctx, r.orderKey(collection), 1, rowID).Err(); err != nil {
		return unavailable("delete row order", err)
	}
	return nil
}

func (r *Redis) Scan(ctx context.Context, collection string) ([]Row, error) {
	ids, err := r.client.LRange(ctx, r.orderKey(collection), 0, -1).Result()
	if err != nil {
		return nil, unavailable("scan order", err)
	}
	if len(ids) == 0 {
		return []Row{}, nil
	}
	payloads, err := r.client.HMGet(ctx, r.rowsKey(collection), ids...).Result()
	if err != nil {
		return nil, unavailable("scan rows", err)
	}
	rows := make([]Row, 0, len(ids))
	for i, raw := range payloads {
		// A row deleted between LRANGE and HMGET shows up as nil; skip it.
		str, ok := raw.(string)
		if !ok {
			continue
		}
		values := make(map[string]string)
		if err := json.Unmarshal([]byte(str), &values); err != nil {
			return nil, fmt.Errorf("unmarshal row %s: %w", ids[i], err)
		}
		rows = append(rows, Row{ID: ids[i], Values: values})
	}
	return rows, nil
}

func (r *Redis) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redis %s: %v: %w", op, err, sentinel.ErrUnavailable)
}

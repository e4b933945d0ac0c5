package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func bodyHash(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

func nowUTC() time.Time { return time.Now().UTC() }

func buildKey(method, path, memberID, requestID string) string {
	return "idemp:coop:" + strings.ToLower(method) + ":" + path + ":" + memberID + ":" + requestID
}

var (
	reHex32    = regexp.MustCompile(`^[a-f0-9]{32}$`)
	reMemberID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)
)

// validReqID accepts a canonical lowercase UUID (v1-v5) or 32 lowercase hex chars.
func validReqID(id string) bool {
	if reHex32.MatchString(id) {
		return true
	}
	u, err := uuid.Parse(id)
	if err != nil || u.String() != id {
		return false
	}
	return u.Version() >= 1 && u.Version() <= 5
}

// parseRequestAt accepts:
//   - epoch seconds (e.g., "1736123456")
//   - epoch milliseconds (e.g., "1736123456789")
//   - RFC3339 / RFC3339Nano with timezone (e.g., "2026-09-05T10:00:00+01:00" or "...Z")
//
// Naive local timestamps without timezone are rejected.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing X-Request-At")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 { // ms
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New("X-Request-At must be epoch (s/ms) or RFC3339 with timezone")
}

// store persists idempotency records in redis. A record is first reserved
// with SET NX under a short lock, then committed with the real TTL once the
// handler has answered.
type store struct{ rdb redis.UniversalClient }

func newStore(rdb redis.UniversalClient) store { return store{rdb: rdb} }

func (s store) reserve(ctx context.Context, key string, r record) (bool, error) {
	payload, _ := json.Marshal(r)
	return s.rdb.SetNX(ctx, key, payload, provisionalLockTTL).Result()
}

func (s store) load(ctx context.Context, key string) (record, error) {
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return record{}, err
	}
	var r record
	if err := json.Unmarshal(v, &r); err != nil {
		return record{}, err
	}
	return r, nil
}

func (s store) commit(ctx context.Context, key string, r record, ttl time.Duration) error {
	payload, _ := json.Marshal(r)
	return s.rdb.Set(ctx, key, payload, ttl).Err()
}

func (s store) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

package otp

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	recordVersion1 = 1
	maxTxRetries   = 4
)

var errRecordEncoding = errors.New("otp record field length exceeded")

// RedisStore keeps records in Redis as versioned binary values. A key outlives the code
// by one lock window so a locked record is still visible after its code expires.
type RedisStore struct {
	redis        redis.UniversalClient
	prefix       string
	lockDuration time.Duration
}

// NewRedisStore returns a store keyed under prefix (default "otp").
func NewRedisStore(client redis.UniversalClient, prefix string, lockDuration time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "otp"
	}
	if lockDuration <= 0 {
		lockDuration = DefaultLockDuration
	}
	return &RedisStore{
		redis:        client,
		prefix:       prefix,
		lockDuration: lockDuration,
	}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + ":" + userID
}

// ttl is measured from the record's own timestamps so it does not depend on the
// caller's clock agreeing with the process clock.
func (s *RedisStore) ttl(record Record) time.Duration {
	written := record.CreatedAt
	horizon := record.ExpiresAt
	if record.Locked {
		if record.LockedAt.After(written) {
			written = record.LockedAt
		}
		if record.LockedAt.After(horizon) {
			horizon = record.LockedAt
		}
	}
	ttl := horizon.Add(s.lockDuration).Sub(written)
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (s *RedisStore) Put(ctx context.Context, record Record) error {
	encoded, err := encodeRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(context.WithoutCancel(ctx), s.key(record.UserID), encoded, s.ttl(record)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Record, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	record, err := decodeRecord(data)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return record, nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Del(context.WithoutCancel(ctx), s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// Replace writes record in a WATCH/MULTI transaction after checking that the current
// record is not locked.
func (s *RedisStore) Replace(ctx context.Context, record Record, lockDuration time.Duration) (Record, error) {
	ctx = context.WithoutCancel(ctx)
	key := s.key(record.UserID)
	encoded, err := encodeRecord(record)
	if err != nil {
		return Record{}, err
	}

	var current Record
	err = s.transact(ctx, key, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			// an undecodable record is superseded like any other
			if existing, derr := decodeRecord(data); derr == nil && existing.IsLocked(record.CreatedAt, lockDuration) {
				current = existing
				return ErrLocked
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl(record))
			return nil
		})
		return err
	})
	if errors.Is(err, ErrLocked) {
		return current, ErrLocked
	}
	if err != nil {
		return Record{}, err
	}
	return record, nil
}

// Attempt reads, decides and writes back in one WATCH/MULTI transaction, so concurrent
// attempts on the same user are serialized by Redis.
func (s *RedisStore) Attempt(ctx context.Context, userID, code string, now time.Time, maxAttempts int, lockDuration time.Duration) (Attempt, error) {
	ctx = context.WithoutCancel(ctx)
	key := s.key(userID)

	var attempt Attempt
	err := s.transact(ctx, key, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}
		record, err := decodeRecord(data)
		if err != nil {
			return err
		}

		var consume bool
		attempt, consume = evaluate(record, code, now, maxAttempts, lockDuration)
		if attempt.Refused {
			return nil
		}

		var encoded []byte
		if !consume {
			if encoded, err = encodeRecord(attempt.Record); err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if consume {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, encoded, s.ttl(attempt.Record))
			}
			return nil
		})
		return err
	})
	if err != nil {
		return Attempt{}, err
	}
	return attempt, nil
}

// transact runs fn under WATCH on key, retrying a bounded number of times when another
// writer touches the key first. redis.Nil maps to ErrNotFound and ErrLocked passes
// through unwrapped.
func (s *RedisStore) transact(ctx context.Context, key string, fn func(*redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, fn, key)
		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case err == nil:
			return nil
		case errors.Is(err, redis.Nil):
			return ErrNotFound
		case errors.Is(err, ErrLocked):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrBackend, err)
		}
	}
	return fmt.Errorf("%w: transaction contention", ErrBackend)
}

// Clear removes every key under the store prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.redis.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrBackend, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func decodeTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v)
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errRecordEncoding
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeRecord(record Record) ([]byte, error) {
	if record.Attempts < 0 || record.Attempts > 65535 {
		return nil, errRecordEncoding
	}

	var buf bytes.Buffer
	buf.WriteByte(recordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, uint16(record.Attempts)); err != nil {
		return nil, err
	}
	var locked byte
	if record.Locked {
		locked = 1
	}
	buf.WriteByte(locked)

	for _, t := range []time.Time{record.CreatedAt, record.ExpiresAt, record.LockedAt} {
		if err := binary.Write(&buf, binary.BigEndian, encodeTime(t)); err != nil {
			return nil, err
		}
	}

	if err := writeString(&buf, record.UserID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, record.Code); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Record{}, err
	}
	if version != recordVersion1 {
		return Record{}, errors.New("invalid otp record version")
	}

	var record Record
	var attempts uint16
	if err := binary.Read(reader, binary.BigEndian, &attempts); err != nil {
		return Record{}, err
	}
	record.Attempts = int(attempts)

	locked, err := reader.ReadByte()
	if err != nil {
		return Record{}, err
	}
	record.Locked = locked == 1

	var times [3]int64
	for i := range times {
		if err := binary.Read(reader, binary.BigEndian, &times[i]); err != nil {
			return Record{}, err
		}
	}
	record.CreatedAt = decodeTime(times[0])
	record.ExpiresAt = decodeTime(times[1])
	record.LockedAt = decodeTime(times[2])

	if record.UserID, err = readString(reader); err != nil {
		return Record{}, err
	}
	if record.Code, err = readString(reader); err != nil {
		return Record{}, err
	}

	return record, nil
}

package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/rediset/store"
)

var ErrNilClient = errors.New("redis store: nil client")

// transientTTL bounds the lifetime of results materialized with a zero TTL.
// They are never marked as cached, so the next read recomputes them anyway.
const transientTTL = time.Second

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ store.Store = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (r *Redis) Add(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return r.rdb.SAdd(ctx, key, toArgs(members)...).Err()
}

func (r *Redis) Remove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return r.rdb.SRem(ctx, key, toArgs(members)...).Err()
}

func (r *Redis) ZAdd(ctx context.Context, key string, members ...store.Z) error {
	if len(members) == 0 {
		return nil
	}
	zs := make([]goredis.Z, len(members))
	for i, m := range members {
		zs[i] = goredis.Z{Score: m.Score, Member: m.Member}
	}
	return r.rdb.ZAdd(ctx, key, zs...).Err()
}

func (r *Redis) ZRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return r.rdb.ZRem(ctx, key, toArgs(members)...).Err()
}

func (r *Redis) ZIncrBy(ctx context.Context, key, member string, delta float64) (float64, error) {
	return r.rdb.ZIncrBy(ctx, key, delta, member).Result()
}

func (r *Redis) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error) {
	return r.rdb.ZRemRangeByRank(ctx, key, start, stop).Result()
}

func (r *Redis) ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	return r.rdb.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Result()
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) Card(ctx context.Context, key string) (int64, error) {
	return r.rdb.SCard(ctx, key).Result()
}

func (r *Redis) IsMember(ctx context.Context, key, member string) (bool, error) {
	return r.rdb.SIsMember(ctx, key, member).Result()
}

func (r *Redis) Members(ctx context.Context, key string) ([]string, error) {
	return r.rdb.SMembers(ctx, key).Result()
}

func (r *Redis) ZCard(ctx context.Context, key string) (int64, error) {
	return r.rdb.ZCard(ctx, key).Result()
}

func (r *Redis) ZRange(ctx context.Context, key string, start, stop int64, desc bool) ([]string, error) {
	if desc {
		return r.rdb.ZRevRange(ctx, key, start, stop).Result()
	}
	return r.rdb.ZRange(ctx, key, start, stop).Result()
}

func (r *Redis) ZRangeWithScores(ctx context.Context, key string, start, stop int64, desc bool) ([]store.Z, error) {
	var (
		zs  []goredis.Z
		err error
	)
	if desc {
		zs, err = r.rdb.ZRevRangeWithScores(ctx, key, start, stop).Result()
	} else {
		zs, err = r.rdb.ZRangeWithScores(ctx, key, start, stop).Result()
	}
	if err != nil {
		return nil, err
	}
	out := make([]store.Z, len(zs))
	for i, z := range zs {
		m, _ := z.Member.(string)
		out[i] = store.Z{Member: m, Score: z.Score}
	}
	return out, nil
}

func (r *Redis) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	s, err := r.rdb.ZScore(ctx, key, member).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return s, true, nil
}

func (r *Redis) ZRank(ctx context.Context, key, member string, desc bool) (int64, bool, error) {
	var cmd *goredis.IntCmd
	if desc {
		cmd = r.rdb.ZRevRank(ctx, key, member)
	} else {
		cmd = r.rdb.ZRank(ctx, key, member)
	}
	n, err := cmd.Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Materialize issues the *STORE command, the expiry and the cache marker in
// one MULTI/EXEC so that no reader observes a marker without its result.
func (r *Redis) Materialize(ctx context.Context, m store.Materialization) error {
	if len(m.Sources) == 0 {
		return errors.New("redis store: materialize without sources")
	}
	if m.Sorted && m.Op == store.OpDifference {
		return errors.New("redis store: difference is not supported for sorted sets")
	}

	ttl := m.TTL
	cached := ttl > 0
	if !cached {
		ttl = transientTTL
	}

	_, err := r.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		if m.Sorted {
			zs := &goredis.ZStore{
				Keys:      m.Sources,
				Weights:   m.Weights,
				Aggregate: m.Aggregate.String(),
			}
			if m.Op == store.OpUnion {
				p.ZUnionStore(ctx, m.Dest, zs)
			} else {
				p.ZInterStore(ctx, m.Dest, zs)
			}
		} else {
			switch m.Op {
			case store.OpUnion:
				p.SUnionStore(ctx, m.Dest, m.Sources...)
			case store.OpIntersection:
				p.SInterStore(ctx, m.Dest, m.Sources...)
			default:
				p.SDiffStore(ctx, m.Dest, m.Sources...)
			}
		}
		p.PExpire(ctx, m.Dest, ttl)
		if m.Marker != "" {
			if cached {
				p.Set(ctx, m.Marker, "1", ttl)
			} else {
				p.Del(ctx, m.Marker)
			}
		}
		return nil
	})
	return err
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (r *Redis) Close(context.Context) error {
	if r.closeClient {
		if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func toArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

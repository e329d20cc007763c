package redisstream

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// fakeRedis records the stream commands the transport issues. Commands it
// does not override panic through the nil embedded Cmdable.
type fakeRedis struct {
	redis.Cmdable

	mu         sync.Mutex
	groupErr   error
	added      []*redis.XAddArgs
	acked      []string
	ackCtxErrs []error
	claimable  []redis.XMessage
	claimArgs  []*redis.XAutoClaimArgs
	readable   []redis.XMessage
}

func (f *fakeRedis) XGroupCreateMkStream(ctx context.Context, _, _, _ string) *redis.StatusCmd {
	return redis.NewStatusResult("OK", f.groupErr)
}

func (f *fakeRedis) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, a)
	return redis.NewStringResult("1700000000000-0", nil)
}

func (f *fakeRedis) XAck(ctx context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	f.ackCtxErrs = append(f.ackCtxErrs, ctx.Err())
	return redis.NewIntResult(int64(len(ids)), nil)
}

func (f *fakeRedis) XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimArgs = append(f.claimArgs, a)
	cmd := redis.NewXAutoClaimCmd(ctx)
	cmd.SetVal(f.claimable, "0-0")
	f.claimable = nil
	return cmd
}

func (f *fakeRedis) XReadGroup(_ context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.readable) == 0 {
		return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
	}
	msgs := f.readable
	f.readable = nil
	return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: msgs}}, nil)
}

func (f *fakeRedis) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

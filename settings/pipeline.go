package settings

import (
	"context"
	stderrors "errors"

	"github.com/redis/go-redis/v9"

	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/redisclient"
)

type txPipeliner interface {
	TxPipeline() redis.Pipeliner
}

// Pipeline batches writes from several settings into one MULTI/EXEC
// round trip. fn receives a write-only command surface; bind settings
// to it with On. Reads inside the pipeline fail, and result counts are
// not available until execution, so write methods report zero.
//
//	err := settings.Pipeline(ctx, conn, func(p redisclient.Commands) error {
//		if err := position.On(p).Set(ctx, 1.5); err != nil {
//			return err
//		}
//		return title.On(p).Set(ctx, "alignment")
//	})
func Pipeline(ctx context.Context, conn redisclient.Commands, fn func(redisclient.Commands) error) error {
	tp, ok := conn.(txPipeliner)
	if !ok {
		return errors.WrapInvalid(errors.ErrInvalidValue, "settings", "Pipeline", "connection cannot pipeline")
	}
	pipe := tp.TxPipeline()
	if err := fn(&pipelineCommands{pipe: pipe}); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil && !stderrors.Is(err, redis.Nil) {
		return errors.WrapTransient(err, "settings", "Pipeline", "exec")
	}
	return nil
}

// pipelineCommands queues writes on a pipeliner. Reads are rejected.
type pipelineCommands struct {
	pipe redis.Pipeliner
}

func (p *pipelineCommands) readErr(op string) error {
	return errors.WrapInvalid(errors.ErrNotImplemented, "Pipeline", op, "read inside pipeline")
}

func (p *pipelineCommands) Get(_ context.Context, _ string) (string, bool, error) {
	return "", false, p.readErr("Get")
}

func (p *pipelineCommands) Set(ctx context.Context, key, value string) error {
	p.pipe.Set(ctx, key, value, 0)
	return nil
}

func (p *pipelineCommands) SetEx(ctx context.Context, key, value string, ttlSeconds int64) error {
	p.pipe.SetEx(ctx, key, value, secondsDuration(ttlSeconds))
	return nil
}

func (p *pipelineCommands) Del(ctx context.Context, keys ...string) (int64, error) {
	p.pipe.Del(ctx, keys...)
	return 0, nil
}

func (p *pipelineCommands) Exists(_ context.Context, _ string) (bool, error) {
	return false, p.readErr("Exists")
}

func (p *pipelineCommands) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	p.pipe.IncrBy(ctx, key, delta)
	return 0, nil
}

func (p *pipelineCommands) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	p.pipe.IncrByFloat(ctx, key, delta)
	return 0, nil
}

func (p *pipelineCommands) HGet(_ context.Context, _, _ string) (string, bool, error) {
	return "", false, p.readErr("HGet")
}

func (p *pipelineCommands) HGetAll(_ context.Context, _ string) (map[string]string, error) {
	return nil, p.readErr("HGetAll")
}

func (p *pipelineCommands) HSet(ctx context.Context, key, field, value string) error {
	p.pipe.HSet(ctx, key, field, value)
	return nil
}

func (p *pipelineCommands) HMSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for f, v := range fields {
		args = append(args, f, v)
	}
	p.pipe.HSet(ctx, key, args...)
	return nil
}

func (p *pipelineCommands) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	p.pipe.HDel(ctx, key, fields...)
	return 0, nil
}

func (p *pipelineCommands) HLen(_ context.Context, _ string) (int64, error) {
	return 0, p.readErr("HLen")
}

func (p *pipelineCommands) HExists(_ context.Context, _, _ string) (bool, error) {
	return false, p.readErr("HExists")
}

func (p *pipelineCommands) HScan(_ context.Context, _ string, _ uint64, _ string, _ int64) ([]string, uint64, error) {
	return nil, 0, p.readErr("HScan")
}

func (p *pipelineCommands) LIndex(_ context.Context, _ string, _ int64) (string, bool, error) {
	return "", false, p.readErr("LIndex")
}

func (p *pipelineCommands) LLen(_ context.Context, _ string) (int64, error) {
	return 0, p.readErr("LLen")
}

func (p *pipelineCommands) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	p.pipe.LPush(ctx, key, stringsToAny(values)...)
	return 0, nil
}

func (p *pipelineCommands) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	p.pipe.RPush(ctx, key, stringsToAny(values)...)
	return 0, nil
}

func (p *pipelineCommands) LPop(_ context.Context, _ string) (string, bool, error) {
	return "", false, p.readErr("LPop")
}

func (p *pipelineCommands) RPop(_ context.Context, _ string) (string, bool, error) {
	return "", false, p.readErr("RPop")
}

func (p *pipelineCommands) LRange(_ context.Context, _ string, _, _ int64) ([]string, error) {
	return nil, p.readErr("LRange")
}

func (p *pipelineCommands) LSet(ctx context.Context, key string, index int64, value string) error {
	p.pipe.LSet(ctx, key, index, value)
	return nil
}

func (p *pipelineCommands) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	p.pipe.LRem(ctx, key, count, value)
	return 0, nil
}

func (p *pipelineCommands) ZRange(_ context.Context, _ string, _, _ int64) ([]string, error) {
	return nil, p.readErr("ZRange")
}

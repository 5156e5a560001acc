package main

import (
	"context"

	"github.com/BaSui01/imageflow/api/handlers"
	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/image/providers/gitee"
	"github.com/BaSui01/imageflow/types"
)

// =============================================================================
// 📊 上游调用计数
// =============================================================================
// generate 的指标由 dispatch 记录，其余上游调用在这里包装后计数。

type upstreamRecorder interface {
	RecordUpstreamCall(operation, code string)
}

func recordOutcome(rec upstreamRecorder, operation string, err error) {
	if rec == nil {
		return
	}
	code := ""
	if err != nil {
		code = string(types.FromError(err).Code)
	}
	rec.RecordUpstreamCall(operation, code)
}

type instrumentedUpscaler struct {
	next handlers.Upscaler
	rec  upstreamRecorder
}

func (u instrumentedUpscaler) Upscale(ctx context.Context, rawURL string, scale int, token string) (string, error) {
	out, err := u.next.Upscale(ctx, rawURL, scale, token)
	recordOutcome(u.rec, "upscale", err)
	return out, err
}

type instrumentedVideo struct {
	next handlers.VideoService
	rec  upstreamRecorder
}

func (v instrumentedVideo) CreateVideoTask(ctx context.Context, req *image.VideoRequest) (string, error) {
	id, err := v.next.CreateVideoTask(ctx, req)
	recordOutcome(v.rec, "video_create", err)
	return id, err
}

func (v instrumentedVideo) VideoStatus(ctx context.Context, taskID, token string) (*image.VideoTask, error) {
	task, err := v.next.VideoStatus(ctx, taskID, token)
	recordOutcome(v.rec, "video_status", err)
	return task, err
}

type instrumentedOptimizer struct {
	next handlers.Optimizer
	rec  upstreamRecorder
}

func (o instrumentedOptimizer) Optimize(ctx context.Context, req *gitee.OptimizeRequest) (string, error) {
	out, err := o.next.Optimize(ctx, req)
	recordOutcome(o.rec, "optimize", err)
	return out, err
}

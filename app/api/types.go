package api

import (
	"context"

	"github.com/ugboard/yt-pull/app/channel"
	"github.com/ugboard/yt-pull/app/database"
	"github.com/ugboard/yt-pull/app/pipeline"
)

type PipelineRunner interface {
	RunOnce(ctx context.Context) pipeline.RunResult
	LastRun() *pipeline.RunResult
}

var _ PipelineRunner = (*pipeline.Runner)(nil)

type Handler struct {
	runner   PipelineRunner
	seenRepo database.SeenRepository // nil when the durable cache is disabled
	registry *channel.Registry

	engineURLSet bool
	hasToken     bool
	version      string
}

// Package hooks runs skills against an execution session at the pre- and
// post-execution hook points. Pre-hooks gate the main step: any skill that
// cannot run blocks execution. Post-hooks are best-effort follow-ups: a skill
// that does not support the hook is skipped, never failing a task that
// already executed.
package hooks

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/loomhq/loom/pkg/core"
	loomerrors "github.com/loomhq/loom/pkg/errors"
	"github.com/loomhq/loom/pkg/skills"
	"github.com/loomhq/loom/pkg/telemetry"
)

// Session is the interactive channel of a task's execution session. Prompt
// sends one rendered instruction and returns when the agent has processed
// it. Failures propagate as-is; the pipeline never retries.
type Session interface {
	Prompt(ctx context.Context, content string) error
}

// Pipeline invokes skills sequentially against a session. It holds no state
// between calls beyond its collaborators; independent tasks' pipelines run
// fully in parallel.
type Pipeline struct {
	catalog *skills.Catalog
	logger  *slog.Logger
	metrics *telemetry.CoordinatorMetrics
	tracer  trace.Tracer
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the coordinator metrics sink.
func WithMetrics(metrics *telemetry.CoordinatorMetrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// NewPipeline creates a pipeline over the given skill catalog.
func NewPipeline(catalog *skills.Catalog, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		catalog: catalog,
		logger:  slog.Default(),
		tracer:  otel.Tracer("loom/hooks"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunPreExecutionSkills runs each skill in order before the task's main
// execution step. Pre-execution is all-or-nothing gating: an unknown skill
// id or a skill without pre-hook support fails the whole pipeline, and the
// caller must not let the task enter running status.
func (p *Pipeline) RunPreExecutionSkills(ctx context.Context, session Session, skillIDs []string, cfg core.TaskSkillConfig) error {
	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := p.startSpan(ctx, "Hooks.RunPre", skillIDs)
	defer span.End()

	for _, id := range skillIDs {
		skill, err := p.catalog.Get(id)
		if err != nil {
			return err
		}
		if !skill.SupportsHook(skills.HookPre) {
			p.metrics.RecordHookInvocation(ctx, string(skills.HookPre), id, "unsupported")
			return loomerrors.New(
				loomerrors.CodeUnsupportedHook,
				fmt.Sprintf("skill %q does not support the pre-execution hook", id),
				nil,
			).WithContext("skill_id", id)
		}
		if err := p.invoke(ctx, session, skill, skills.HookPre, cfg, runID); err != nil {
			return err
		}
	}
	return nil
}

// RunPostExecutionSkills runs each skill in order after the task's main
// execution step. A skill without post-hook support is skipped with a log
// entry and the pipeline continues; an unknown id or an invocation failure
// aborts the remaining skills.
func (p *Pipeline) RunPostExecutionSkills(ctx context.Context, session Session, skillIDs []string, cfg core.TaskSkillConfig) error {
	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := p.startSpan(ctx, "Hooks.RunPost", skillIDs)
	defer span.End()

	for _, id := range skillIDs {
		skill, err := p.catalog.Get(id)
		if err != nil {
			return err
		}
		if !skill.SupportsHook(skills.HookPost) {
			p.logger.Warn("skipping skill without post-execution hook",
				slog.String("skill_id", id),
				slog.String("run_id", runID),
			)
			p.metrics.RecordHookSkip(ctx, id)
			continue
		}
		if err := p.invoke(ctx, session, skill, skills.HookPost, cfg, runID); err != nil {
			return err
		}
	}
	return nil
}

// invoke renders the skill against the task's stored overrides and drives
// the session's prompt channel. This is the pipeline's only blocking point.
func (p *Pipeline) invoke(ctx context.Context, session Session, skill skills.Skill, hook skills.Hook, cfg core.TaskSkillConfig, runID string) error {
	derived := skills.ApplyOverrides(skill, cfg.OverridesFor(skill.ID))

	p.logger.Info("hook.skill.start",
		slog.String("skill_id", skill.ID),
		slog.String("hook", string(hook)),
		slog.String("run_id", runID),
	)
	if err := session.Prompt(ctx, derived.PromptTemplate); err != nil {
		p.metrics.RecordHookInvocation(ctx, string(hook), skill.ID, "error")
		p.logger.Error("hook.skill.error",
			slog.String("skill_id", skill.ID),
			slog.String("hook", string(hook)),
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return err
	}
	p.metrics.RecordHookInvocation(ctx, string(hook), skill.ID, "ok")
	p.logger.Info("hook.skill.complete",
		slog.String("skill_id", skill.ID),
		slog.String("hook", string(hook)),
		slog.String("run_id", runID),
	)
	return nil
}

func (p *Pipeline) startSpan(ctx context.Context, name string, skillIDs []string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int("skills.count", len(skillIDs)),
	))
}

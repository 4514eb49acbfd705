package agent

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/browser"
	"github.com/hairizuan-noorazman/linkedin-agent/classifier"
	"github.com/hairizuan-noorazman/linkedin-agent/configstore"
	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/optimizer"
	"github.com/hairizuan-noorazman/linkedin-agent/pacing"
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
	"github.com/hairizuan-noorazman/linkedin-agent/storage"
)

// Result is the outcome of one task run.
type Result struct {
	Metrics     runhistory.Metrics
	Record      *runhistory.RunRecord
	Adjustments []optimizer.Adjustment
}

// Runner tunes the settings, runs a task and records its metrics.
type Runner struct {
	config     Config
	settings   *configstore.Store
	optimizer  *optimizer.Optimizer
	storage    storage.BlobStorage
	classifier classifier.Classifier
	logger     logger.Logger
	pacing     []pacing.Option
	now        func() time.Time
}

// NewRunner creates a Runner. pacingOpts are passed to every limiter,
// humanizer and retry the tasks use.
func NewRunner(
	config Config,
	settings *configstore.Store,
	opt *optimizer.Optimizer,
	blobStorage storage.BlobStorage,
	cls classifier.Classifier,
	log logger.Logger,
	pacingOpts ...pacing.Option,
) *Runner {
	return &Runner{
		config:     config,
		settings:   settings,
		optimizer:  opt,
		storage:    blobStorage,
		classifier: cls,
		logger:     log,
		pacing:     pacingOpts,
		now:        time.Now,
	}
}

// Run executes task against page. Metrics are logged even when the task
// fails; the task error is returned alongside the result.
func (r *Runner) Run(ctx context.Context, page browser.Page, task Task) (*Result, error) {
	log := r.logger.WithField("agent_type", string(task.Kind()))
	log.Info(ctx, "starting agent run", nil)

	// 1. Tune settings from previous runs
	res := &Result{Adjustments: r.optimizer.Optimize(ctx)}

	// 2. Build pacing from the tuned settings
	limiterCfg := task.Limiter(pacing.LimiterConfigFrom(r.settings), r.settings)
	limiter, err := pacing.NewRateLimiter(limiterCfg, r.pacing...)
	if err != nil {
		return res, fmt.Errorf("invalid rate limiter settings: %w", err)
	}

	env := &Env{
		Page:       page,
		Human:      pacing.NewHumanizer(page, r.pacing...),
		Limiter:    limiter,
		Config:     r.settings,
		Storage:    r.storage,
		Classifier: r.classifier,
		Logger:     log,
		Settings:   r.config,
		now:        r.now,
		pacing:     r.pacing,
	}

	// 3. Run the task within the time limit
	runCtx := ctx
	if r.config.TimeLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.config.TimeLimit)
		defer cancel()
	}
	metrics, runErr := task.Run(runCtx, env)
	if metrics == nil {
		metrics = &runhistory.GenericMetrics{AgentType: task.Kind()}
	}
	res.Metrics = metrics

	// 4. Keep a screenshot of the failure
	if runErr != nil {
		log.Error(ctx, "agent run failed", map[string]interface{}{
			"error": runErr.Error(),
		})
		r.saveScreenshot(ctx, page, task.Kind())
	}

	// 5. Record the run even if the context is done
	record, err := r.optimizer.LogRun(context.WithoutCancel(ctx), metrics)
	if err != nil {
		log.Error(ctx, "failed to record run", map[string]interface{}{
			"error": err.Error(),
		})
	}
	res.Record = record

	if runErr == nil {
		log.Info(ctx, "agent run completed", map[string]interface{}{
			"adjustments": len(res.Adjustments),
		})
	}
	return res, runErr
}

func (r *Runner) saveScreenshot(ctx context.Context, page browser.Page, kind runhistory.AgentType) {
	ctx = context.WithoutCancel(ctx)
	shot, err := page.Screenshot(ctx)
	if err != nil {
		r.logger.Warn(ctx, "failed to capture debug screenshot", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	name := fmt.Sprintf("%s_%s.png", kind, r.now().Format("20060102_150405"))
	p := path.Join(r.config.DebugDir, name)
	if err := storage.WriteAll(ctx, r.storage, p, shot); err != nil {
		r.logger.Warn(ctx, "failed to save debug screenshot", map[string]interface{}{
			"path":  p,
			"error": err.Error(),
		})
		return
	}
	r.logger.Info(ctx, "debug screenshot saved", map[string]interface{}{"path": p})

	if r.config.DebugKeep > 0 {
		r.pruneScreenshots(ctx, kind)
	}
}

// pruneScreenshots deletes the oldest screenshots of kind beyond DebugKeep.
// Names sort by their timestamp suffix.
func (r *Runner) pruneScreenshots(ctx context.Context, kind runhistory.AgentType) {
	paths, err := r.storage.List(ctx, r.config.DebugDir)
	if err != nil {
		r.logger.Warn(ctx, "failed to list debug screenshots", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	var shots []string
	for _, p := range paths {
		if strings.HasPrefix(path.Base(p), string(kind)+"_") {
			shots = append(shots, p)
		}
	}
	if len(shots) <= r.config.DebugKeep {
		return
	}

	for _, p := range shots[:len(shots)-r.config.DebugKeep] {
		if err := r.storage.Delete(ctx, p); err != nil {
			r.logger.Warn(ctx, "failed to delete debug screenshot", map[string]interface{}{
				"path":  p,
				"error": err.Error(),
			})
		}
	}
}

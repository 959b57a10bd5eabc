package jobs

import (
	"brandwatch/internal/cache"
	"brandwatch/internal/config"
	"brandwatch/internal/logging"
	"brandwatch/internal/metrics"
	"brandwatch/internal/model"
	"brandwatch/internal/repository"
	"brandwatch/internal/service"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const scanDedupKey = "scan-unverified"

var errUnknownKind = errors.New("unknown job kind")

type PostScorer interface {
	ProcessPost(ctx context.Context, event *model.PostEvent) (*service.ScoreResult, error)
}

type ThreatVerifier interface {
	Verify(ctx context.Context, threatID string) (*model.Verification, error)
}

type ResponseSynthesizer interface {
	Synthesize(ctx context.Context, threatID string) (*model.Response, error)
}

type ResponsePublisher interface {
	Publish(ctx context.Context, responseID string) (*model.Response, error)
}

// Pipeline bundles the stages a verify-one job chains together
type Pipeline struct {
	Scorer      PostScorer
	Verifier    ThreatVerifier
	Synthesizer ResponseSynthesizer
	Publisher   ResponsePublisher
}

// Orchestrator runs pipeline jobs from the durable queue with bounded retries
type Orchestrator struct {
	queue    cache.JobQueue
	pipeline Pipeline
	threats  repository.ThreatRepo
	notifier service.Notifier
	metrics  *metrics.Metrics
	logger   logging.Logger
	cfg      config.JobsConfig

	respondWithoutEvidence bool

	now    func() time.Time
	jitter func() float64
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	queue cache.JobQueue,
	pipeline Pipeline,
	threats repository.ThreatRepo,
	notifier service.Notifier,
	m *metrics.Metrics,
	logger logging.Logger,
	cfg config.JobsConfig,
	respondWithoutEvidence bool,
) *Orchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &Orchestrator{
		queue:                  queue,
		pipeline:               pipeline,
		threats:                threats,
		notifier:               notifier,
		metrics:                m,
		logger:                 logger,
		cfg:                    cfg,
		respondWithoutEvidence: respondWithoutEvidence,
		now:                    time.Now,
		jitter:                 rand.Float64,
	}
}

// SubmitPost validates event and queues it for scoring
func (o *Orchestrator) SubmitPost(ctx context.Context, event *model.PostEvent) (string, error) {
	if err := service.ValidatePost(event); err != nil {
		return "", err
	}
	job := o.newJob(model.JobScorePost)
	job.Post = event
	if _, err := o.queue.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("enqueue score-post: %w", err)
	}
	return job.ID, nil
}

// EnqueueVerify queues a verify-one job. queued is false when dedup is on
// and a job for the same threat is still pending.
func (o *Orchestrator) EnqueueVerify(ctx context.Context, threatID string, autoPost bool) (jobID string, queued bool, err error) {
	job := o.newJob(model.JobVerifyOne)
	job.ThreatID = threatID
	job.AutoPost = autoPost
	if o.cfg.DedupVerify {
		job.DedupKey = "verify:" + threatID
	}
	queued, err = o.queue.Enqueue(ctx, job)
	if err != nil {
		return "", false, fmt.Errorf("enqueue verify-one for %s: %w", threatID, err)
	}
	return job.ID, queued, nil
}

// EnqueueScan queues one scan-unverified job unless one is already pending
func (o *Orchestrator) EnqueueScan(ctx context.Context) (bool, error) {
	job := o.newJob(model.JobScanUnverified)
	job.DedupKey = scanDedupKey
	return o.queue.Enqueue(ctx, job)
}

// PublishNow runs a manual publish attempt outside the queue
func (o *Orchestrator) PublishNow(ctx context.Context, responseID string) (*model.Response, error) {
	return o.pipeline.Publisher.Publish(ctx, responseID)
}

func (o *Orchestrator) newJob(kind model.JobKind) *model.Job {
	return &model.Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		MaxAttempts: o.cfg.MaxAttempts,
		EnqueuedAt:  o.now(),
	}
}

// Run requeues jobs a previous process left inflight, then works the queue
// with cfg.Concurrency workers until ctx is cancelled
func (o *Orchestrator) Run(ctx context.Context) error {
	recovered, err := o.queue.RecoverInflight(ctx)
	if err != nil {
		return fmt.Errorf("recover inflight jobs: %w", err)
	}
	if recovered > 0 {
		o.logger.WithField("jobs", recovered).Warn("Requeued jobs left inflight by a previous run")
	}

	o.logger.WithField("workers", o.cfg.Concurrency).Info("Job orchestrator started")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < o.cfg.Concurrency; i++ {
		worker := i
		g.Go(func() error {
			o.work(gctx, worker)
			return nil
		})
	}
	g.Go(func() error {
		o.promote(gctx)
		return nil
	})

	err = g.Wait()
	o.logger.Info("Job orchestrator stopped")
	return err
}

func (o *Orchestrator) work(ctx context.Context, worker int) {
	for {
		if ctx.Err() != nil {
			return
		}
		handled, err := o.poll(ctx)
		if err != nil && ctx.Err() == nil {
			o.logger.WithError(err).WithField("worker", worker).Warn("Queue poll failed")
		}
		if handled {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(o.cfg.PollInterval):
		}
	}
}

// promote moves due retries back to the ready list and samples queue depth
func (o *Orchestrator) promote(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.queue.PromoteDue(ctx, o.now()); err != nil && ctx.Err() == nil {
				o.logger.WithError(err).Warn("Failed to promote delayed jobs")
			}
			if depth, err := o.queue.Depth(ctx); err == nil {
				o.metrics.SetQueueDepth("ready", depth.Ready)
				o.metrics.SetQueueDepth("inflight", depth.Inflight)
				o.metrics.SetQueueDepth("delayed", depth.Delayed)
			}
		}
	}
}

// poll dequeues and handles at most one job
func (o *Orchestrator) poll(ctx context.Context) (bool, error) {
	d, err := o.queue.Dequeue(ctx)
	if errors.Is(err, cache.ErrMalformedJob) {
		o.logger.WithError(err).Error("Dropped malformed job")
		return true, nil
	}
	if err != nil || d == nil {
		return false, err
	}
	o.handle(ctx, d)
	return true, nil
}

func (o *Orchestrator) handle(ctx context.Context, d *cache.Delivery) {
	job := d.Job
	start := o.now()

	// a started job runs to completion even during shutdown
	jobCtx := context.WithoutCancel(ctx)
	if o.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, o.cfg.JobTimeout)
		defer cancel()
	}

	err := o.safeExecute(jobCtx, job)
	elapsed := o.now().Sub(start).Seconds()
	entry := o.logger.WithFields(logging.Fields{
		"jobId":   job.ID,
		"kind":    job.Kind,
		"attempt": job.Attempt + 1,
		"entity":  job.EntityID(),
	})

	if err == nil {
		o.metrics.ObserveJob(string(job.Kind), "ok", elapsed)
		if ackErr := o.queue.Ack(jobCtx, d); ackErr != nil {
			entry.WithError(ackErr).Warn("Failed to ack job")
		}
		entry.Debug("Job completed")
		return
	}

	job.Attempt++
	job.LastError = err.Error()
	retry := !service.IsPermanent(err) && !errors.Is(err, errUnknownKind) && !isPanic(err) && job.Attempt < job.MaxAttempts

	if retry {
		delay := Backoff(job.Attempt, o.cfg.BaseBackoff, o.cfg.MaxBackoff, o.jitter())
		if qErr := o.queue.Retry(jobCtx, d, o.now().Add(delay)); qErr != nil {
			entry.WithError(qErr).Error("Failed to schedule job retry")
		}
		o.metrics.JobRetried(string(job.Kind))
		o.metrics.ObserveJob(string(job.Kind), "retry", elapsed)
		entry.WithError(err).WithField("retryIn", delay.String()).Warn("Job failed, will retry")
	} else {
		if ackErr := o.queue.Ack(jobCtx, d); ackErr != nil {
			entry.WithError(ackErr).Warn("Failed to ack job")
		}
		o.metrics.ObserveJob(string(job.Kind), "failed", elapsed)
		entry.WithError(err).Error("Job failed permanently")
	}

	o.notifier.Notify(jobCtx, model.Event{
		Type:     model.EventJobFailed,
		EntityID: job.EntityID(),
		Message:  err.Error(),
		Data: map[string]any{
			"jobId":       job.ID,
			"kind":        job.Kind,
			"attempt":     job.Attempt,
			"maxAttempts": job.MaxAttempts,
			"willRetry":   retry,
		},
		At: o.now(),
	})
}

type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.value)
}

func isPanic(err error) bool {
	var p *panicError
	return errors.As(err, &p)
}

func (o *Orchestrator) safeExecute(ctx context.Context, job *model.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: string(debug.Stack())}
			o.logger.WithField("stack", err.(*panicError).stack).Error("Recovered job panic")
		}
	}()
	return o.execute(ctx, job)
}

func (o *Orchestrator) execute(ctx context.Context, job *model.Job) error {
	switch job.Kind {
	case model.JobScorePost:
		return o.runScore(ctx, job)
	case model.JobVerifyOne:
		return o.runVerify(ctx, job.ThreatID, job.AutoPost)
	case model.JobScanUnverified:
		_, err := o.Sweep(ctx)
		return err
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, job.Kind)
	}
}

func (o *Orchestrator) runScore(ctx context.Context, job *model.Job) error {
	if job.Post == nil {
		return fmt.Errorf("%w: score-post job without post", service.ErrInvalidPost)
	}
	res, err := o.pipeline.Scorer.ProcessPost(ctx, job.Post)
	if err != nil {
		return err
	}
	if !res.Triggered || res.Threat == nil {
		return nil
	}
	// threats that already reached a terminal state are not re-verified on re-ingestion
	if res.Threat.Status.Rank() >= model.ThreatResponded.Rank() {
		return nil
	}
	_, _, err = o.EnqueueVerify(ctx, res.Threat.ID, res.Threat.AutoPost)
	return err
}

// runVerify chains verification, synthesis and publication for one threat
func (o *Orchestrator) runVerify(ctx context.Context, threatID string, autoPost bool) error {
	if err := o.threats.MarkVerifying(ctx, threatID); err != nil {
		return fmt.Errorf("mark threat %s verifying: %w", threatID, err)
	}

	verdict, err := o.pipeline.Verifier.Verify(ctx, threatID)
	if err != nil {
		return err
	}

	if !o.shouldRespond(verdict) {
		return o.setStatus(ctx, threatID, model.ThreatResolved)
	}

	resp, err := o.pipeline.Synthesizer.Synthesize(ctx, threatID)
	if errors.Is(err, service.ErrResponseAlreadyPosted) {
		return o.setStatus(ctx, threatID, model.ThreatResponded)
	}
	if err != nil {
		return err
	}
	if err := o.setStatus(ctx, threatID, model.ThreatResponded); err != nil {
		return err
	}

	if !autoPost {
		return nil
	}
	_, err = o.pipeline.Publisher.Publish(ctx, resp.ID)
	if errors.Is(err, service.ErrResponseAlreadyPosted) {
		return nil
	}
	return err
}

// shouldRespond applies the response policy: FALSE always, UNVERIFIED only
// with evidence unless respondWithoutEvidence is set, TRUE never
func (o *Orchestrator) shouldRespond(v *model.Verification) bool {
	switch v.Status {
	case model.VerdictFalse:
		return true
	case model.VerdictUnverified:
		return len(v.EvidenceIDs) > 0 || o.respondWithoutEvidence
	default:
		return false
	}
}

func (o *Orchestrator) setStatus(ctx context.Context, threatID string, status model.ThreatStatus) error {
	if err := o.threats.SetStatus(ctx, threatID, status); err != nil {
		return fmt.Errorf("set threat %s %s: %w", threatID, status, err)
	}
	return nil
}

// Sweep queues verification for threats still unverified after the grace period
func (o *Orchestrator) Sweep(ctx context.Context) (int, error) {
	threats, err := o.threats.ListUnverified(ctx, o.now().Add(-o.cfg.SweepGrace), o.cfg.SweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list unverified threats: %w", err)
	}

	queued := 0
	for _, t := range threats {
		_, ok, err := o.EnqueueVerify(ctx, t.ID, t.AutoPost)
		if err != nil {
			return queued, err
		}
		if ok {
			queued++
		}
	}
	if len(threats) > 0 {
		o.logger.WithFields(logging.Fields{
			"found":  len(threats),
			"queued": queued,
		}).Info("Swept unverified threats")
	}
	return queued, nil
}

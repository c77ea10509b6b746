package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/serp-rank-service/internal/entity"
	"github.com/user/serp-rank-service/internal/repository"
	"github.com/user/serp-rank-service/pkg/identity"
	"github.com/user/serp-rank-service/pkg/metrics"
	"github.com/user/serp-rank-service/pkg/utils"
)

const sinkTimeout = 10 * time.Second

// RunController drives one keyword × city search run at a time and exposes
// the signals the control surface needs.
type RunController interface {
	// Start validates cfg and launches the run in the background. It returns the run ID.
	Start(cfg entity.RunConfig) (string, error)
	Pause()
	Resume()
	// Stop asks the run to end at the next term boundary. It does not wait.
	Stop()
	// CaptchaSolved releases a pending challenge. It reports whether one was pending.
	CaptchaSolved() bool
	Status() entity.ProgressSnapshot
	// Report returns the report of the last completed or stopped run.
	Report() (string, error)
	// Wait blocks until the current run's worker has exited.
	Wait()
}

// ControllerOptions configures the run controller.
type ControllerOptions struct {
	Session           SessionOptions
	PausePollInterval time.Duration
	// DefaultDriverPath is used when a start request names no browser binary.
	DefaultDriverPath string
	Detectors         []Detector
}

type runControllerUseCase struct {
	launcher   repository.BrowserLauncher
	archive    repository.ReportArchive
	publisher  repository.ProgressPublisher
	identities *identity.Rotator
	opts       ControllerOptions
	now        func() time.Time

	state   *runState
	pause   *PauseGate
	captcha *CaptchaSignal
	monitor *CaptchaMonitor

	mu      sync.Mutex // serializes Start/Stop and guards stopRun and done
	stopRun context.CancelFunc
	done    chan struct{}
}

// NewRunController creates the run controller. archive, publisher and
// identities are optional.
func NewRunController(
	launcher repository.BrowserLauncher,
	archive repository.ReportArchive,
	publisher repository.ProgressPublisher,
	identities *identity.Rotator,
	opts ControllerOptions,
) RunController {
	captcha := NewCaptchaSignal()
	return &runControllerUseCase{
		launcher:   launcher,
		archive:    archive,
		publisher:  publisher,
		identities: identities,
		opts:       opts,
		now:        time.Now,
		state:      newRunState(),
		pause:      NewPauseGate(opts.PausePollInterval),
		captcha:    captcha,
		monitor:    NewCaptchaMonitor(captcha, opts.Detectors),
	}
}

func (uc *runControllerUseCase) Start(cfg entity.RunConfig) (string, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.state.isRunning() || uc.workerAlive() {
		return "", ErrAlreadyRunning
	}

	cfg.Keywords = utils.CleanList(cfg.Keywords)
	cfg.Cities = utils.CleanList(cfg.Cities)
	if cfg.DriverPath == "" {
		cfg.DriverPath = uc.opts.DefaultDriverPath
	}
	if err := validateRunConfig(cfg); err != nil {
		return "", err
	}

	runID := uuid.NewString()
	uc.state.reset(runID, cfg.TargetDomain, cfg.TotalTerms(), uc.now())
	uc.pause.Resume()
	uc.captcha.Resolve()

	stopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	uc.stopRun = cancel
	uc.done = done

	metrics.RunActive.Set(1)
	slog.Info("Run started", "run_id", runID, "target", cfg.TargetDomain, "total", cfg.TotalTerms())

	go func() {
		defer close(done)
		defer cancel()
		uc.run(stopCtx, runID, cfg)
	}()

	return runID, nil
}

// workerAlive reports whether the previous run's worker is still finishing
// up (archiving, publishing). Callers hold uc.mu.
func (uc *runControllerUseCase) workerAlive() bool {
	if uc.done == nil {
		return false
	}
	select {
	case <-uc.done:
		return false
	default:
		return true
	}
}

func validateRunConfig(cfg entity.RunConfig) error {
	switch {
	case cfg.TargetDomain == "":
		return fmt.Errorf("%w: website to check is required", ErrInvalidRunConfig)
	case len(cfg.Keywords) == 0:
		return fmt.Errorf("%w: at least one keyword is required", ErrInvalidRunConfig)
	case len(cfg.Cities) == 0:
		return fmt.Errorf("%w: at least one city is required", ErrInvalidRunConfig)
	}
	return nil
}

func (uc *runControllerUseCase) Pause()  { uc.pause.Pause() }
func (uc *runControllerUseCase) Resume() { uc.pause.Resume() }

func (uc *runControllerUseCase) Stop() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.stopRun != nil {
		uc.stopRun()
	}
	uc.pause.Resume()
	uc.captcha.Resolve()
}

func (uc *runControllerUseCase) CaptchaSolved() bool {
	return uc.captcha.Resolve()
}

func (uc *runControllerUseCase) Status() entity.ProgressSnapshot {
	snap := uc.state.snapshot(uc.now())
	snap.Paused = uc.pause.Paused()
	snap.CaptchaPending = uc.captcha.Pending()
	return snap
}

func (uc *runControllerUseCase) Report() (string, error) {
	report, ok := uc.state.reportText()
	if !ok {
		return "", ErrNoReport
	}
	return report, nil
}

func (uc *runControllerUseCase) Wait() {
	uc.mu.Lock()
	done := uc.done
	uc.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (uc *runControllerUseCase) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	uc.state.appendLog(line)
	slog.Info(line)
}

// run is the background worker. Browser interactions use their own context
// so that Stop never interrupts one in flight; stopCtx only releases the
// pause and challenge waits and is checked at term boundaries.
func (uc *runControllerUseCase) run(stopCtx context.Context, runID string, cfg entity.RunConfig) {
	ctx := context.Background()
	session := NewBrowserSession(uc.launcher, uc.identities, uc.opts.Session, uc.logf)

	if err := session.Launch(ctx, cfg.DriverPath); err != nil {
		uc.logf("Browser launch failed: %v", err)
		uc.finish(ctx, entity.PhaseFailed, "")
		return
	}

	phase, err := uc.searchLoop(ctx, stopCtx, session, cfg)
	if terr := session.Teardown(); terr != nil {
		slog.Warn("Browser teardown failed", "run_id", runID, "error", terr)
	}

	if phase == entity.PhaseFailed {
		uc.logf("Run failed: %v", err)
		uc.finish(ctx, phase, "")
		return
	}

	report := BuildReport(uc.state.bucketsCopy())
	if phase == entity.PhaseStopped {
		uc.logf("Script stopped.")
	} else {
		uc.logf("Script completed.")
	}
	uc.finish(ctx, phase, report)
}

// searchLoop processes every term, keyword-major, until done, stopped or a
// fatal error.
func (uc *runControllerUseCase) searchLoop(ctx, stopCtx context.Context, session *BrowserSession, cfg entity.RunConfig) (entity.RunPhase, error) {
	for _, term := range cfg.Terms() {
		if stopCtx.Err() != nil {
			return entity.PhaseStopped, nil
		}

		if uc.pause.Paused() {
			uc.logf("Script paused.")
			if err := uc.pause.Wait(stopCtx); err != nil || stopCtx.Err() != nil {
				return entity.PhaseStopped, nil
			}
			uc.logf("Script resumed.")
		}

		err := uc.processTerm(ctx, stopCtx, session, cfg.TargetDomain, term)
		switch {
		case errors.Is(err, errStopRequested):
			return entity.PhaseStopped, nil
		case err != nil:
			return entity.PhaseFailed, err
		}
	}
	return entity.PhaseCompleted, nil
}

// processTerm runs one term and classifies it exactly once. Per-term
// failures, panics included, are downgraded to not_found here; only
// errStopRequested and launch failures propagate.
func (uc *runControllerUseCase) processTerm(ctx, stopCtx context.Context, session *BrowserSession, target string, term entity.SearchTerm) error {
	start := uc.now()
	uc.logf("Searching: %s", term)

	var (
		counted bool
		bucket  entity.Bucket
		href    string
		err     error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		bucket, href, err = uc.searchTerm(ctx, stopCtx, session, target, term, &counted)
	}()

	if errors.Is(err, errStopRequested) {
		return err
	}

	c := entity.Classification{Term: term, Bucket: bucket, MatchedURL: href, At: uc.now()}
	fatal := errors.Is(err, repository.ErrLaunch)
	if err != nil && !fatal {
		uc.state.appendLog(fmt.Sprintf("Error on %s: %v", term, err))
		slog.Warn("Term failed", "term", term.Query(), "error", err)
		metrics.TermErrorsTotal.WithLabelValues(termErrorType(err)).Inc()
		c.Bucket = entity.BucketNotFound
		c.MatchedURL = ""
		c.Error = err.Error()
	}
	if !counted {
		uc.state.incCompleted()
	}
	uc.state.classify(c)

	metrics.TermsTotal.WithLabelValues(string(c.Bucket)).Inc()
	metrics.TermDuration.Observe(uc.now().Sub(start).Seconds())
	uc.publish(ctx)

	if fatal {
		return err
	}
	return nil
}

// searchTerm is the search/scan/click sequence of a single term. counted is
// set once the term has been added to the completed counter.
func (uc *runControllerUseCase) searchTerm(ctx, stopCtx context.Context, session *BrowserSession, target string, term entity.SearchTerm, counted *bool) (entity.Bucket, string, error) {
	if err := uc.submitPastChallenges(ctx, stopCtx, session, term); err != nil {
		return entity.BucketNotFound, "", err
	}

	uc.state.incCompleted()
	*counted = true

	href, ok, err := session.FindAndClickMatch(ctx, target)
	if ok {
		return entity.BucketFirstPage, href, err
	}
	if err != nil {
		return entity.BucketNotFound, "", err
	}

	if err := session.ClickNext(ctx); err != nil {
		uc.logf("No second page for %s: %v", term, err)
		return entity.BucketNotFound, "", nil
	}

	href, ok, err = session.FindAndClickMatch(ctx, target)
	if ok {
		return entity.BucketSecondPage, href, err
	}
	return entity.BucketNotFound, "", err
}

// submitPastChallenges submits the term's query and, for as long as the
// result is a challenge page, waits for it to be solved and submits again.
func (uc *runControllerUseCase) submitPastChallenges(ctx, stopCtx context.Context, session *BrowserSession, term entity.SearchTerm) error {
	for {
		if err := session.NavigateStart(ctx); err != nil {
			return fmt.Errorf("open start page: %w", err)
		}
		if err := session.SubmitSearch(ctx, term.Query()); err != nil {
			return err
		}

		page, err := session.Page(ctx)
		if err != nil {
			slog.Debug("Challenge check skipped", "term", term.Query(), "error", err)
			return nil
		}
		detected, source := uc.monitor.Detect(page)
		if !detected {
			return nil
		}

		uc.logf("CAPTCHA detected (%s). Waiting...", source)
		uc.publish(ctx)
		if err := uc.captcha.Wait(stopCtx); err != nil || stopCtx.Err() != nil {
			return errStopRequested
		}
		uc.logf("CAPTCHA solved. Retrying search...")
	}
}

func termErrorType(err error) string {
	switch {
	case errors.Is(err, repository.ErrInteractionTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}

// finish marks the run terminal and hands the result to the optional sinks.
func (uc *runControllerUseCase) finish(ctx context.Context, phase entity.RunPhase, report string) {
	record := uc.state.finish(phase, report, uc.now())
	metrics.RunActive.Set(0)
	metrics.RunsTotal.WithLabelValues(string(phase)).Inc()

	slog.Info("Run finished", "run_id", record.RunID, "phase", phase,
		"completed", record.CompletedCount, "total", record.TotalCount)

	if uc.archive != nil && phase != entity.PhaseFailed {
		actx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := uc.archive.Save(actx, record); err != nil {
			slog.Error("Failed to archive run report", "run_id", record.RunID, "error", err)
		}
		cancel()
	}
	uc.publish(ctx)
}

func (uc *runControllerUseCase) publish(ctx context.Context) {
	if uc.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	if err := uc.publisher.Publish(pctx, uc.Status()); err != nil {
		slog.Warn("Failed to publish progress", "error", err)
	}
}

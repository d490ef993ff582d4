package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
	"github.com/bryanwahyu/imagegate/internal/domain/images"
	"github.com/bryanwahyu/imagegate/internal/domain/pipeline"
	"github.com/bryanwahyu/imagegate/internal/domain/policy"
)

// Service implements the gate use-case: build, scan, evaluate, publish.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Builder   images.Builder
	Scanners  []findings.Scanner
	Publisher images.Publisher
	Repo      pipeline.Repository      // optional, runs are not persisted when nil
	Events    pipeline.EventRepository // optional
	Artifacts pipeline.ArtifactStore   // optional
	Clock     Clock
	Options   Options
}

// Clock abstraction to make the service testable
type Clock interface {
	Now() time.Time
}

// Options bound the pipeline's retry, timeout and concurrency behavior
type Options struct {
	Parallelism  int           // concurrent scanner invocations, min 1
	ScanTimeout  time.Duration // per scanner attempt, 0 means no limit
	BuildRetries uint64        // extra build attempts after the first
	ScanRetries  uint64        // extra scan attempts after the first
	Sign         bool
}

// RunCommand triggers one gate pipeline execution
type RunCommand struct {
	TenantID    string
	ContextPath string
	Tag         string
	Destination string
	Policy      policy.RuleSet
	Source      string
	CommitSHA   string
	Branch      string
}

// RunResult carries everything a caller needs to explain the outcome
type RunResult struct {
	Run     *pipeline.Run
	Build   images.BuildResult
	Reports []findings.ScanReport
	Verdict policy.Verdict
	Publish *images.PublishResult
}

// Run executes the pipeline: Building -> Scanning -> Evaluating -> Publishing
// -> Done, entering Failed from any stage on error or on a failing verdict.
// A failing verdict is a normal outcome: Run returns the result with
// Verdict.Pass=false and a nil error. Errors mean the gate itself could not
// decide (build, scanner infrastructure, publish).
func (s *Service) Run(ctx context.Context, cmd RunCommand) (RunResult, error) {
	started := s.Clock.Now()
	id := pipeline.RunID(fmt.Sprintf("%s-gate", uuid.New().String()))

	run := &pipeline.Run{
		ID:          id,
		TenantID:    cmd.TenantID,
		TriggeredAt: started,
		State:       pipeline.StateBuilding,
		ContextPath: cmd.ContextPath,
		Tag:         cmd.Tag,
		Destination: cmd.Destination,
		Source:      cmd.Source,
		CommitSHA:   cmd.CommitSHA,
		Branch:      cmd.Branch,
	}
	s.saveRun(ctx, run)

	res := RunResult{Run: run}

	// ---- Building ----
	build, err := s.buildWithRetry(ctx, cmd.ContextPath, cmd.Tag)
	if err != nil {
		berr := &pipeline.BuildError{ContextPath: cmd.ContextPath, Tag: cmd.Tag, Err: err}
		s.fail(ctx, run, started, "build", "", berr)
		return res, berr
	}
	res.Build = build
	run.Digest = build.Digest
	_ = run.Advance(pipeline.StateScanning)
	s.saveRun(ctx, run)

	// ---- Scanning ----
	reports := s.scanAll(ctx, cmd.Tag, build.Digest)
	res.Reports = reports
	if ctx.Err() != nil {
		cerr := fmt.Errorf("pipeline cancelled during scan: %w", ctx.Err())
		s.fail(ctx, run, started, "scan", "", cerr)
		return res, cerr
	}
	for _, rep := range reports {
		if !rep.Clean() {
			s.recordEvent(ctx, run, "scan", rep.Scanner,
				fmt.Sprintf("scanner %s finished with status %s", rep.Scanner, rep.Status),
				map[string]string{"error": rep.Error})
		}
	}
	s.uploadRawReports(ctx, run, reports)
	_ = run.Advance(pipeline.StateEvaluating)
	s.saveRun(ctx, run)

	// ---- Evaluating ----
	verdict := policy.Evaluate(build.Digest, reports, cmd.Policy, s.Clock.Now())
	res.Verdict = verdict
	run.Pass = verdict.Pass
	run.Counts = verdict.Counts
	s.uploadVerdict(ctx, run, verdict)

	if !verdict.Pass {
		// policy violation is a verdict, not an error
		run.State = pipeline.StateFailed
		run.Error = verdictSummary(verdict)
		run.DurationMS = s.Clock.Now().Sub(started).Milliseconds()
		s.recordEvent(ctx, run, "evaluate", "", run.Error, verdict.FailReasons())
		s.saveRun(ctx, run)
		return res, nil
	}
	_ = run.Advance(pipeline.StatePublishing)
	s.saveRun(ctx, run)

	// ---- Publishing ----
	// publish is never auto-retried; a partial push must surface
	pub, err := s.Publisher.Publish(ctx, images.PublishRequest{
		SourceRef:      cmd.Tag,
		Digest:         verdict.Digest,
		DestinationRef: cmd.Destination,
		Sign:           s.Options.Sign,
	})
	if err != nil {
		perr := &pipeline.PublishError{Destination: cmd.Destination, Digest: verdict.Digest, Err: err}
		s.fail(ctx, run, started, "publish", "", perr)
		return res, perr
	}
	res.Publish = &pub

	_ = run.Advance(pipeline.StateDone)
	run.DurationMS = s.Clock.Now().Sub(started).Milliseconds()
	s.saveRun(ctx, run)
	return res, nil
}

func (s *Service) buildWithRetry(ctx context.Context, contextPath, tag string) (images.BuildResult, error) {
	var out images.BuildResult
	op := func() error {
		res, err := s.Builder.Build(ctx, contextPath, tag)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.Options.BuildRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return images.BuildResult{}, err
	}
	return out, nil
}

// scanAll fans the configured scanners out over a bounded worker pool and
// blocks until every scanner has returned or timed out. A scanner that cannot
// produce a report degrades to a timed-out or tool-error report; it never
// aborts the other scanners.
func (s *Service) scanAll(ctx context.Context, image, digest string) []findings.ScanReport {
	parallelism := s.Options.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	sem := make(chan struct{}, parallelism)
	reports := make([]findings.ScanReport, len(s.Scanners))

	var wg sync.WaitGroup
	for i, sc := range s.Scanners {
		wg.Add(1)
		go func(i int, sc findings.Scanner) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			reports[i] = s.scanOne(ctx, sc, image, digest)
		}(i, sc)
	}
	wg.Wait()
	return reports
}

func (s *Service) scanOne(ctx context.Context, sc findings.Scanner, image, digest string) findings.ScanReport {
	var report findings.ScanReport
	op := func() error {
		attemptCtx := ctx
		if s.Options.ScanTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.Options.ScanTimeout)
			defer cancel()
		}
		rep, err := sc.Scan(attemptCtx, image, digest)
		if err != nil {
			// a timed-out or cancelled attempt is not retried
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			return err
		}
		report = rep
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.Options.ScanRetries), ctx)
	err := backoff.Retry(op, bo)
	if err == nil {
		return report
	}

	degraded := findings.ScanReport{
		Scanner:   sc.Name(),
		Image:     image,
		Digest:    digest,
		ScannedAt: s.Clock.Now(),
		Error:     err.Error(),
	}
	if errors.Is(err, context.DeadlineExceeded) {
		degraded.Status = findings.ScanTimedOut
	} else {
		degraded.Status = findings.ScanToolError
	}
	return degraded
}

func (s *Service) fail(ctx context.Context, run *pipeline.Run, started time.Time, stage, scanner string, cause error) {
	run.State = pipeline.StateFailed
	run.Error = cause.Error()
	run.DurationMS = s.Clock.Now().Sub(started).Milliseconds()
	s.recordEvent(ctx, run, stage, scanner, cause.Error(), nil)
	s.saveRun(ctx, run)
}

// saveRun persists best-effort: the gate decision must not depend on storage
func (s *Service) saveRun(ctx context.Context, run *pipeline.Run) {
	if s.Repo == nil {
		return
	}
	if err := s.Repo.Save(ctx, run); err != nil {
		log.Printf("run save error: id=%s state=%s err=%v", run.ID, run.State, err)
	}
}

func (s *Service) recordEvent(ctx context.Context, run *pipeline.Run, stage, scanner, message string, details any) {
	if s.Events == nil {
		return
	}
	var detailsJSON string
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = string(b)
		}
	}
	e := &pipeline.Event{
		TenantID:    run.TenantID,
		RunID:       string(run.ID),
		Stage:       stage,
		Scanner:     scanner,
		Message:     message,
		DetailsJSON: detailsJSON,
		CreatedAt:   s.Clock.Now(),
	}
	if err := s.Events.Save(ctx, e); err != nil {
		log.Printf("event save error: run=%s stage=%s err=%v", run.ID, stage, err)
	}
}

// uploadRawReports stores each scanner's raw output, then the normalized
// reports, so a gate decision can be reproduced without re-running tools.
func (s *Service) uploadRawReports(ctx context.Context, run *pipeline.Run, reports []findings.ScanReport) {
	if s.Artifacts == nil {
		return
	}
	for _, rep := range reports {
		if rep.RawPath == "" {
			continue
		}
		key := fmt.Sprintf("%s/%s/%s/%s", run.TenantID, run.ID, rep.Scanner, filepath.Base(rep.RawPath))
		if _, err := s.Artifacts.UploadAndCleanup(ctx, rep.RawPath, key); err != nil {
			log.Printf("artifact upload error: run=%s scanner=%s err=%v", run.ID, rep.Scanner, err)
		}
	}
	b, err := json.Marshal(reports)
	if err != nil {
		return
	}
	key := fmt.Sprintf("%s/%s/reports.json", run.TenantID, run.ID)
	url, err := s.Artifacts.UploadBytes(ctx, b, key, "application/json")
	if err != nil {
		log.Printf("artifact upload error: run=%s key=%s err=%v", run.ID, key, err)
		return
	}
	run.ArtifactURL = url
}

func (s *Service) uploadVerdict(ctx context.Context, run *pipeline.Run, v policy.Verdict) {
	if s.Artifacts == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	key := fmt.Sprintf("%s/%s/verdict.json", run.TenantID, run.ID)
	if _, err := s.Artifacts.UploadBytes(ctx, b, key, "application/json"); err != nil {
		log.Printf("verdict upload error: run=%s err=%v", run.ID, err)
	}
}

func verdictSummary(v policy.Verdict) string {
	reasons := v.FailReasons()
	if len(reasons) == 0 {
		return "policy violation"
	}
	msg := reasons[0].Message
	if len(reasons) > 1 {
		msg = fmt.Sprintf("%s (+%d more)", msg, len(reasons)-1)
	}
	return "policy violation: " + msg
}

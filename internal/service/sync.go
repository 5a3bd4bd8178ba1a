package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cowboy-strava/internal/cowboy"
	"cowboy-strava/internal/store"
	"cowboy-strava/internal/strava"
	"cowboy-strava/internal/tcx"
)

// ErrIncompleteTelemetry marks telemetry too partial to build a
// trustworthy track from.
var ErrIncompleteTelemetry = errors.New("incomplete telemetry")

// TripSource lists trips and fetches telemetry from the source provider.
type TripSource interface {
	Trips(ctx context.Context, sess cowboy.Session, from, to time.Time, page int) (*cowboy.TripsPage, error)
	Trip(ctx context.Context, sess cowboy.Session, id int64) (*cowboy.Trip, error)
	Charts(ctx context.Context, sess cowboy.Session, id int64) (*cowboy.Charts, error)
}

// SessionSource provides valid source-provider sessions. Refresh is
// called exactly when the provider rejects a session as unauthorized.
type SessionSource interface {
	Current(ctx context.Context) (cowboy.Session, error)
	Refresh(ctx context.Context) (cowboy.Session, error)
}

// Destination uploads activities to the destination provider.
type Destination interface {
	CreateActivity(ctx context.Context, a strava.NewActivity) error
	UploadTrack(ctx context.Context, up strava.TrackUpload) (*strava.UploadStatus, error)
}

// History persists the set of processed trip uids and run bookkeeping.
type History interface {
	LoadProcessed() (map[string]struct{}, error)
	MarkProcessed(uid string, tripID int64, mode string) error
	RecordRun(run *store.SyncRun) error
}

// Options configure one sync run.
type Options struct {
	LookbackDays int
	Grace        time.Duration
	WattsFilter  float64
	// ExportDir, when set, receives a copy of every built TCX file.
	ExportDir string
	// DryRun classifies and builds but neither uploads nor records
	// history.
	DryRun bool
	// TripID forces re-processing of a single trip, bypassing both the
	// listing window and the processed-history check.
	TripID int64
}

// Result summarizes one sync run.
type Result struct {
	RunID    string
	Uploaded int // detailed track uploads
	Simple   int // summary-only uploads
	Skipped  int // already processed
	Deferred int // left for a future run
	Errors   []error
}

// Service runs the trip synchronization batch job: list candidate
// trips, decide an action per trip, build and upload tracks, and record
// terminal outcomes so later runs skip them.
type Service struct {
	source   TripSource
	sessions SessionSource
	dest     Destination
	history  History
	opts     Options
	log      *slog.Logger

	// now is replaceable in tests
	now func() time.Time
}

// New creates a sync service.
func New(source TripSource, sessions SessionSource, dest Destination, history History, opts Options, log *slog.Logger) *Service {
	if opts.WattsFilter == 0 {
		opts.WattsFilter = tcx.DefaultWattsFilter
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		source:   source,
		sessions: sessions,
		dest:     dest,
		history:  history,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// Run performs one full synchronization pass. Per-trip upload failures
// are collected in the result; only unrecoverable conditions (no usable
// session, history writes failing) abort the run with an error.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	log := s.log.With("run_id", result.RunID)
	startedAt := s.now()

	processed, err := s.history.LoadProcessed()
	if err != nil {
		// A fresh or unreadable history must not block the run; dedup
		// degrades to the destination's own conflict detection.
		log.Warn("could not load processed history, starting empty", "error", err)
		processed = make(map[string]struct{})
	}

	sess, err := s.sessions.Current(ctx)
	if err != nil {
		return result, fmt.Errorf("acquiring session: %w", err)
	}

	trips, sess, err := s.listCandidates(ctx, sess, log, result)
	if err != nil {
		return result, err
	}

	for i := range trips {
		if err := s.processTrip(ctx, sess, &trips[i], processed, log, result); err != nil {
			return result, err
		}
	}

	if !s.opts.DryRun {
		run := &store.SyncRun{
			ID:         result.RunID,
			StartedAt:  startedAt,
			FinishedAt: s.now(),
			Uploaded:   result.Uploaded,
			Simple:     result.Simple,
			Skipped:    result.Skipped,
			Deferred:   result.Deferred,
			Errors:     len(result.Errors),
		}
		if err := s.history.RecordRun(run); err != nil {
			return result, fmt.Errorf("recording sync run: %w", err)
		}
	}

	log.Info("sync finished",
		"uploaded", result.Uploaded,
		"simple", result.Simple,
		"skipped", result.Skipped,
		"deferred", result.Deferred,
		"errors", len(result.Errors))
	return result, nil
}

// listCandidates collects the candidate trips, either the one forced
// trip or every trip in the lookback window. It returns the session it
// ended up using, which may have been refreshed on the way.
func (s *Service) listCandidates(ctx context.Context, sess cowboy.Session, log *slog.Logger, result *Result) ([]cowboy.Trip, cowboy.Session, error) {
	if s.opts.TripID != 0 {
		trip, err := s.source.Trip(ctx, sess, s.opts.TripID)
		if errors.Is(err, cowboy.ErrUnauthorized) {
			if sess, err = s.sessions.Refresh(ctx); err != nil {
				return nil, sess, fmt.Errorf("refreshing session: %w", err)
			}
			trip, err = s.source.Trip(ctx, sess, s.opts.TripID)
		}
		if err != nil {
			return nil, sess, fmt.Errorf("fetching trip %d: %w", s.opts.TripID, err)
		}
		return []cowboy.Trip{*trip}, sess, nil
	}

	from, to := Window(s.now(), s.opts.LookbackDays)
	log.Info("listing trips", "from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))

	var trips []cowboy.Trip
	for page := 1; ; page++ {
		pg, err := s.source.Trips(ctx, sess, from, to, page)
		if errors.Is(err, cowboy.ErrUnauthorized) {
			// One forced re-login, then retry the same page.
			if sess, err = s.sessions.Refresh(ctx); err != nil {
				return nil, sess, fmt.Errorf("refreshing session: %w", err)
			}
			pg, err = s.source.Trips(ctx, sess, from, to, page)
		}
		if err != nil {
			// Trips on unread pages stay unprocessed until the next run.
			log.Error("trip listing failed, processing what was fetched", "page", page, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("listing page %d: %w", page, err))
			break
		}

		trips = append(trips, pg.Flatten()...)
		if pg.LastPage {
			break
		}
	}
	return trips, sess, nil
}

// processTrip takes one trip through the state machine. The returned
// error is non-nil only for history write failures, which must abort
// the run: losing dedup state would mean duplicate uploads next time.
func (s *Service) processTrip(ctx context.Context, sess cowboy.Session, trip *cowboy.Trip, processed map[string]struct{}, log *slog.Logger, result *Result) error {
	now := s.now()
	decision := Classify(trip, processed, ClassifyOptions{
		Now:   now,
		Grace: s.opts.Grace,
		Force: s.opts.TripID != 0 && s.opts.TripID == trip.ID,
	})
	log = log.With("trip_id", trip.ID, "uid", trip.UID)

	switch decision {
	case AlreadyDone:
		log.Info("trip already processed, nothing to do")
		result.Skipped++
		return nil

	case TooRecent, Waiting:
		log.Info("trip deferred to a future run", "decision", decision.String())
		result.Deferred++
		return nil

	case Simple:
		log.Info("uploading summary activity")
		return s.uploadSimple(ctx, trip, processed, log, result)

	case Detailed:
		return s.uploadDetailed(ctx, sess, trip, processed, now, log, result)
	}
	return nil
}

// uploadDetailed fetches telemetry, builds the track and uploads it.
// When the telemetry cannot be fetched or is incomplete, the trip falls
// back to a summary upload once it is a day old, and is deferred
// otherwise.
func (s *Service) uploadDetailed(ctx context.Context, sess cowboy.Session, trip *cowboy.Trip, processed map[string]struct{}, now time.Time, log *slog.Logger, result *Result) error {
	telemetry, err := s.source.Charts(ctx, sess, trip.ID)
	if err == nil && !tcx.Complete(trip, telemetry) {
		err = ErrIncompleteTelemetry
	}
	if err != nil {
		if now.After(trip.StartedAt.Add(simpleFallbackAge)) {
			log.Warn("telemetry unusable, falling back to summary upload", "error", err)
			return s.uploadSimple(ctx, trip, processed, log, result)
		}
		log.Info("telemetry not ready yet, deferring trip", "error", err)
		result.Deferred++
		return nil
	}

	doc := tcx.Build(trip, telemetry, s.opts.WattsFilter)
	data, err := doc.Encode()
	if err != nil {
		// Broken trip: stop here, no partial uploads.
		log.Error("encoding track document failed", "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("trip %s: encoding track: %w", trip.UID, err))
		return nil
	}

	s.exportCopy(trip.UID, data, log)

	if s.opts.DryRun {
		log.Info("dry run: would upload track", "bytes", len(data))
		return nil
	}

	if _, err := s.dest.UploadTrack(ctx, strava.TrackUpload{
		Filename: trip.UID + ".tcx",
		Name:     trip.Title,
		Data:     data,
	}); err != nil {
		log.Error("track upload failed", "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("trip %s: uploading track: %w", trip.UID, err))
		return nil
	}

	log.Info("uploaded track", "trackpoints", len(doc.Activities.Activity.Lap.Track.Trackpoints))
	result.Uploaded++
	return s.markProcessed(trip, store.ModeTrack, processed)
}

func (s *Service) uploadSimple(ctx context.Context, trip *cowboy.Trip, processed map[string]struct{}, log *slog.Logger, result *Result) error {
	if s.opts.DryRun {
		log.Info("dry run: would create summary activity")
		return nil
	}

	err := s.dest.CreateActivity(ctx, strava.NewActivity{
		Name:        trip.Title,
		StartDate:   trip.StartedAt,
		ElapsedTime: trip.MovingTime,
		Distance:    tcx.RoundMeters(trip.Distance),
	})
	if errors.Is(err, strava.ErrDuplicate) {
		log.Info("activity already exists on destination")
		err = nil
	}
	if err != nil {
		log.Error("summary upload failed", "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("trip %s: creating activity: %w", trip.UID, err))
		return nil
	}

	result.Simple++
	return s.markProcessed(trip, store.ModeSimple, processed)
}

// markProcessed records the terminal outcome durably before the run
// moves on, so a crash cannot replay a completed upload.
func (s *Service) markProcessed(trip *cowboy.Trip, mode string, processed map[string]struct{}) error {
	if err := s.history.MarkProcessed(trip.UID, trip.ID, mode); err != nil {
		return fmt.Errorf("persisting processed trip %s: %w", trip.UID, err)
	}
	processed[trip.UID] = struct{}{}
	return nil
}

// exportCopy writes the built document to the export directory, if one
// is configured. Export failures never fail the trip.
func (s *Service) exportCopy(uid string, data []byte, log *slog.Logger) {
	if s.opts.ExportDir == "" {
		return
	}
	path := filepath.Join(s.opts.ExportDir, uid+".tcx")
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Warn("export copy failed", "path", path, "error", err)
		return
	}
	log.Info("exported track copy", "path", path)
}

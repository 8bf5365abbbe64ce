/**
 * Session synchronizer for the region annotator
 *
 * A Syncer owns one Session and is its only writer. Run starts a single loop goroutine
 * that applies local mutations, writes them through to the store, and reconciles the
 * stored document whenever a keyspace event reports that another client changed it.
 * The subscription goroutine never touches the Session; it only forwards key names.
 */

package syncer

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/adverant/nexus/region-annotator/internal/annotation"
	"github.com/adverant/nexus/region-annotator/internal/errors"
	"github.com/adverant/nexus/region-annotator/internal/logging"
	"github.com/adverant/nexus/region-annotator/internal/queue"
	"github.com/adverant/nexus/region-annotator/internal/store"
)

// ErrStopped is returned by calls made after Run has returned
var ErrStopped = stderrors.New("syncer stopped")

// Listener receives change callbacks on the loop goroutine.
// The session passed to SessionChanged must not be kept after the call returns.
type Listener interface {
	SessionChanged(s *annotation.Session, report annotation.MergeReport)
	ImageChanged(key string, data []byte)
	RecordChanged(rec store.Record)
}

// Runner hands generated scripts to the external engine
type Runner interface {
	Run(ctx context.Context, script string, env map[string]string) error
}

// Options configures a Syncer
type Options struct {
	SessionKey string

	// ImageKey is the record (or raw image) key being annotated. With ImageField set,
	// the image bytes live at the key stored in that field of the record.
	ImageKey   string
	ImageField string

	SourcesNamespace string
	SyncWithOthers   bool
	Debounce         time.Duration
	ExplicitNotify   bool
	AutoRun          bool
	SinglePageOnly   bool
}

type op struct {
	fn    func(*annotation.Session) error
	write bool
	done  chan error
}

// Syncer serializes all access to a Session
type Syncer struct {
	conn     *store.Conn
	opts     Options
	listener Listener
	runner   Runner
	logger   *logging.Logger

	ops     chan op
	stopped chan struct{}

	// owned by the loop goroutine
	session  *annotation.Session
	syncOn   bool
	imageRef string
}

// New creates a Syncer around an empty session. listener and runner may be nil.
func New(conn *store.Conn, opts Options, listener Listener, runner Runner) *Syncer {
	return &Syncer{
		conn:     conn,
		opts:     opts,
		listener: listener,
		runner:   runner,
		logger:   logging.NewLogger("syncer").With("session_key", opts.SessionKey),
		ops:      make(chan op),
		stopped:  make(chan struct{}),
		session:  annotation.NewSession(),
		syncOn:   opts.SyncWithOthers,
	}
}

// Run subscribes to keyspace events, loads the stored session and then serves
// mutations and notifications until ctx is cancelled. The subscription is closed
// before Run returns. Run must be called once.
func (s *Syncer) Run(ctx context.Context) error {
	defer close(s.stopped)

	sub, err := s.conn.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	// The stored document may have been written without a matching notification
	s.useLatestSession(ctx)
	s.refreshImage(ctx)

	var (
		timer    *time.Timer
		debounce <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	s.logger.Info("Syncer started", "sync", s.syncOn, "debounce", s.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Syncer stopping")
			return nil

		case key, ok := <-sub.Keys():
			if !ok {
				return errors.NewStoreFailedError(s.opts.SessionKey, "SUBSCRIBE", stderrors.New("subscription closed"))
			}
			if key != s.opts.SessionKey {
				s.route(ctx, key)
				continue
			}
			if s.opts.Debounce <= 0 {
				s.reconcile(ctx)
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.opts.Debounce)
			} else {
				timer.Reset(s.opts.Debounce)
			}
			debounce = timer.C

		case <-debounce:
			debounce = nil
			s.reconcile(ctx)

		case o := <-s.ops:
			o.done <- s.apply(ctx, o)
		}
	}
}

// Done is closed once Run has returned
func (s *Syncer) Done() <-chan struct{} {
	return s.stopped
}

// Do runs fn against the session on the loop. When fn succeeds and sync is on, the
// whole document is written back to the store.
func (s *Syncer) Do(ctx context.Context, fn func(*annotation.Session) error) error {
	return s.submit(ctx, op{fn: fn, write: true})
}

// View runs fn against the session on the loop without writing anything back
func (s *Syncer) View(ctx context.Context, fn func(*annotation.Session)) error {
	return s.submit(ctx, op{fn: func(sess *annotation.Session) error {
		fn(sess)
		return nil
	}})
}

// SetSync turns synchronization with other clients on or off. Turning it on fetches
// the stored session.
func (s *Syncer) SetSync(ctx context.Context, on bool) error {
	return s.submit(ctx, op{fn: func(*annotation.Session) error {
		was := s.syncOn
		s.syncOn = on
		if on && !was {
			s.useLatestSession(ctx)
		}
		return nil
	}})
}

// UseLatestSession fetches the stored session and merges it into the local one
func (s *Syncer) UseLatestSession(ctx context.Context) error {
	return s.submit(ctx, op{fn: func(*annotation.Session) error {
		s.useLatestSession(ctx)
		return nil
	}})
}

// Scripts returns the engine scripts for the current session
func (s *Syncer) Scripts(ctx context.Context) (annotation.ScriptBundle, error) {
	var bundle annotation.ScriptBundle
	err := s.View(ctx, func(sess *annotation.Session) {
		bundle = annotation.BuildScripts(sess, s.opts.SinglePageOnly)
	})
	return bundle, err
}

// AddRegion adds r to the default page, writes the session through and, with
// auto-run enabled, hands the regenerated scripts to the runner.
func (s *Syncer) AddRegion(ctx context.Context, r annotation.Region) (annotation.ScriptBundle, error) {
	var bundle annotation.ScriptBundle
	err := s.Do(ctx, func(sess *annotation.Session) error {
		if err := sess.AddRegion(r); err != nil {
			return err
		}
		bundle = annotation.BuildScripts(sess, s.opts.SinglePageOnly)
		return nil
	})
	if err != nil {
		return bundle, err
	}

	if s.opts.AutoRun && s.runner != nil && !bundle.Empty() {
		if err := s.RunScripts(ctx, bundle); err != nil {
			return bundle, err
		}
	}
	return bundle, nil
}

// RunScripts dispatches bundle for the annotated image
func (s *Syncer) RunScripts(ctx context.Context, bundle annotation.ScriptBundle) error {
	if s.runner == nil {
		return errors.NewDispatchFailedError("", stderrors.New("no runner configured"))
	}
	return s.runner.Run(ctx, bundle.Text(), s.Env(ctx))
}

// Env is the engine environment for the annotated image. $SEQUENCE is set when the
// image key is in the sources list.
func (s *Syncer) Env(ctx context.Context) map[string]string {
	seq := -1
	if s.opts.SourcesNamespace != "" && s.opts.ImageKey != "" {
		pos, ok, err := s.conn.SourcePosition(ctx, s.opts.SourcesNamespace, s.opts.ImageKey)
		if err != nil {
			s.logger.Warn("Failed to read source position", "error", err)
		} else if ok {
			seq = pos
		}
	}
	return queue.Env(s.conn, s.opts.ImageKey, seq)
}

func (s *Syncer) submit(ctx context.Context, o op) error {
	o.done = make(chan error, 1)
	select {
	case s.ops <- o:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-o.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Syncer) apply(ctx context.Context, o op) error {
	if err := o.fn(s.session); err != nil {
		return err
	}
	if !o.write || !s.syncOn {
		return nil
	}

	data, err := s.session.XML()
	if err != nil {
		return err
	}
	if err := s.conn.SaveSession(ctx, s.opts.SessionKey, data, s.opts.ExplicitNotify); err != nil {
		s.logger.Error("Failed to write session", "error", err)
		return err
	}
	return nil
}

func (s *Syncer) route(ctx context.Context, key string) {
	if s.opts.ImageKey == "" {
		return
	}
	switch {
	case key == s.opts.ImageKey:
		s.refreshImage(ctx)
		s.refreshRecord(ctx)
	case s.imageRef != "" && key == s.imageRef:
		s.refreshImage(ctx)
	}
}

func (s *Syncer) reconcile(ctx context.Context) {
	if !s.syncOn {
		s.logger.Debug("Sync disabled, notification ignored")
		return
	}
	s.useLatestSession(ctx)
}

func (s *Syncer) useLatestSession(ctx context.Context) {
	data, err := s.conn.FetchSession(ctx, s.opts.SessionKey)
	if err != nil {
		if errors.IsCode(err, errors.ErrorNoData) {
			s.logger.Debug("No stored session")
		} else {
			s.logger.Error("Failed to fetch session", "error", err)
		}
		return
	}

	report, err := annotation.ReconcileXML(s.session, data)
	if err != nil {
		s.logger.Error("Discarded stored session", "error", err)
		return
	}
	for _, w := range report.Warnings {
		s.logger.Warn("Session document", "warning", w)
	}
	for page, names := range report.DroppedRules {
		s.logger.Debug("Dropped rules without a local slot", "page", page, "values", names)
	}

	s.logger.Debug("Session reconciled",
		"created", report.CreatedPages,
		"updated", report.UpdatedPages)

	if s.listener != nil {
		s.listener.SessionChanged(s.session, report)
	}
}

func (s *Syncer) refreshImage(ctx context.Context) {
	if s.opts.ImageKey == "" {
		return
	}

	key := s.opts.ImageKey
	if s.opts.ImageField != "" {
		ref, err := s.conn.ImageReference(ctx, s.opts.ImageKey, s.opts.ImageField)
		if err != nil {
			s.logger.Debug("Image reference unavailable", "key", s.opts.ImageKey, "error", err)
			return
		}
		s.imageRef = ref
		key = ref
	}

	data, err := s.conn.LoadImage(ctx, key, "")
	if err != nil {
		s.logger.Debug("Image unavailable", "key", key, "error", err)
		return
	}
	if s.listener != nil {
		s.listener.ImageChanged(key, data)
	}
}

func (s *Syncer) refreshRecord(ctx context.Context) {
	rec, err := s.conn.LoadRecord(ctx, s.opts.ImageKey)
	if err != nil {
		s.logger.Debug("Record unavailable", "key", s.opts.ImageKey, "error", err)
		return
	}
	if s.listener != nil {
		s.listener.RecordChanged(rec)
	}
}

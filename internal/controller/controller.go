// Package controller wires the submission session, the health monitor and
// the overlay channel into the single object the presentation layer drives.
package controller

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jask/scandraw/internal/feature"
	"github.com/jask/scandraw/internal/health"
	"github.com/jask/scandraw/internal/logging"
	"github.com/jask/scandraw/internal/overlay"
	"github.com/jask/scandraw/internal/session"
)

// Recorder stores completed analyses.
type Recorder interface {
	Record(ctx context.Context, file session.File, engine string, features []feature.Feature) error
}

// Deps are injected at construction; Overlay and History are optional.
type Deps struct {
	Uploader       session.Uploader
	Prober         health.Prober
	Overlay        *overlay.Channel
	History        Recorder
	Logger         *slog.Logger
	MonitorOptions []health.Option
}

type Controller struct {
	monitor *health.Monitor
	session *session.Session
	overlay *overlay.Channel
	history Recorder
	logger  *slog.Logger
}

func New(d Deps) *Controller {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ov := d.Overlay
	if ov == nil {
		ov = overlay.New()
	}
	opts := append([]health.Option{health.WithLogger(logger)}, d.MonitorOptions...)
	mon := health.NewMonitor(d.Prober, opts...)
	return &Controller{
		monitor: mon,
		session: session.New(d.Uploader, mon, ov, logger),
		overlay: ov,
		history: d.History,
		logger:  logger,
	}
}

// Mount starts connectivity polling.
func (c *Controller) Mount(ctx context.Context) {
	c.monitor.Start(ctx)
}

// Unmount stops polling. Safe to call more than once.
func (c *Controller) Unmount() {
	c.monitor.Stop()
}

func (c *Controller) Monitor() *health.Monitor { return c.monitor }
func (c *Controller) Overlay() *overlay.Channel { return c.overlay }

func (c *Controller) Select(f session.File) error { return c.session.Select(f) }

func (c *Controller) Submit(f session.File) (*Upload, error) {
	up, err := c.session.Submit(f)
	if err != nil {
		return nil, err
	}
	return &Upload{inner: up, c: c}, nil
}

func (c *Controller) SubmitSelected() (*Upload, error) {
	up, err := c.session.SubmitSelected()
	if err != nil {
		return nil, err
	}
	return &Upload{inner: up, c: c}, nil
}

func (c *Controller) Clear() { c.session.Clear() }

// Highlight publishes the region of f, or clears the overlay when f is nil
// or carries no region.
func (c *Controller) Highlight(f *feature.Feature) {
	if f == nil || f.Box == nil {
		c.overlay.Publish(nil)
		return
	}
	c.overlay.Publish(f.Box)
}

// View is a snapshot of everything the workspace shows.
type View struct {
	State        session.State
	Connectivity health.Connectivity
	Groups       feature.Groups
	Sorted       []feature.Feature
	Highlight    *feature.Region
}

// CanSubmit reports whether the submit action should be enabled.
func (v View) CanSubmit() bool {
	if v.Connectivity.Status == health.StatusOffline {
		return false
	}
	return v.State == nil || v.State.Phase() != session.PhaseProcessing
}

func (c *Controller) View() View {
	v := View{
		State:        c.session.State(),
		Connectivity: c.monitor.Connectivity(),
		Highlight:    c.overlay.Current(),
	}
	if done, ok := v.State.(session.Complete); ok {
		v.Groups = feature.Classify(done.Features)
		v.Sorted = feature.SortForDisplay(done.Features)
	}
	return v
}

// Upload wraps a session upload so completed analyses reach history.
type Upload struct {
	inner *session.Upload
	c     *Controller
}

func (u *Upload) File() session.File { return u.inner.File() }

// Run performs the upload. A history write failure is logged only.
func (u *Upload) Run(ctx context.Context) (session.State, error) {
	ctx = logging.WithUploadID(ctx, uuid.NewString())
	u.c.logger.InfoContext(ctx, "controller: uploading", "file", u.inner.File().Name)
	st, err := u.inner.Run(ctx)
	if err != nil {
		return st, err
	}
	done, ok := st.(session.Complete)
	if !ok || u.c.history == nil {
		return st, nil
	}
	engine := u.c.monitor.Connectivity().Engine
	if rerr := u.c.history.Record(ctx, u.inner.File(), engine, done.Features); rerr != nil {
		u.c.logger.ErrorContext(ctx, "controller: record history", "file", u.inner.File().Name, "error", rerr)
	}
	return st, nil
}

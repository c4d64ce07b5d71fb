// Package session runs one upload-analyse-display cycle at a time as an
// explicit five-state machine.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jask/scandraw/internal/api"
	"github.com/jask/scandraw/internal/feature"
	"github.com/jask/scandraw/internal/health"
)

var (
	// ErrOffline rejects a submission before any network call.
	ErrOffline = errors.New("session: backend is offline")
	// ErrBusy rejects a submission while another is processing.
	ErrBusy = errors.New("session: a drawing is already being processed")
	// ErrNothingSelected is returned by SubmitSelected outside Previewing.
	ErrNothingSelected = errors.New("session: no drawing selected")
	// ErrSuperseded reports an upload whose result was discarded because the
	// session was cleared or resubmitted while it was in flight.
	ErrSuperseded = errors.New("session: upload superseded")
)

// Uploader sends a drawing for analysis.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) ([]feature.Feature, error)
}

// ConnectivitySource gates submissions on backend reachability.
type ConnectivitySource interface {
	Connectivity() health.Connectivity
}

// HighlightClearer is the part of the overlay channel the session drives.
type HighlightClearer interface {
	Clear()
}

type Session struct {
	uploader Uploader
	conn     ConnectivitySource
	overlay  HighlightClearer
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	selected *File
	gen      uint64
}

func New(u Uploader, conn ConnectivitySource, overlay HighlightClearer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{uploader: u, conn: conn, overlay: overlay, logger: logger, state: Idle{}}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Select shows f as a preview without submitting it.
func (s *Session) Select(f File) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if _, busy := s.state.(Processing); busy {
		s.mu.Unlock()
		return ErrBusy
	}
	old := PreviewOf(s.state)
	s.selected = &f
	s.state = Previewing{Preview: NewPreview(f)}
	s.gen++
	s.mu.Unlock()

	old.Release()
	s.clearHighlight()
	return nil
}

// Submit moves to Processing and returns the upload to run. An offline
// backend rejects the call with ErrOffline and leaves the state untouched.
func (s *Session) Submit(f File) (*Upload, error) {
	return s.submit(&f)
}

// SubmitSelected submits the file currently shown in Previewing.
func (s *Session) SubmitSelected() (*Upload, error) {
	return s.submit(nil)
}

func (s *Session) submit(f *File) (*Upload, error) {
	if s.conn != nil && s.conn.Connectivity().Status == health.StatusOffline {
		return nil, ErrOffline
	}

	s.mu.Lock()
	if _, busy := s.state.(Processing); busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	var preview *Preview
	if f == nil {
		pv, ok := s.state.(Previewing)
		if !ok || s.selected == nil {
			s.mu.Unlock()
			return nil, ErrNothingSelected
		}
		f, preview = s.selected, pv.Preview
	}
	if err := f.Validate(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	old := PreviewOf(s.state)
	if preview == nil {
		preview = NewPreview(*f)
	}
	s.gen++
	s.selected = nil
	s.state = Processing{Preview: preview}
	up := &Upload{session: s, gen: s.gen, file: *f, preview: preview}
	s.mu.Unlock()

	if old != preview {
		old.Release()
	}
	s.clearHighlight()
	s.logger.Info("session: submitting drawing", "file", f.Name, "type", f.ContentType, "bytes", len(f.Data))
	return up, nil
}

// Clear returns to Idle, drops the preview and the highlight. Any upload in
// flight is left to finish but its result is discarded.
func (s *Session) Clear() {
	s.mu.Lock()
	old := PreviewOf(s.state)
	s.state = Idle{}
	s.selected = nil
	s.gen++
	s.mu.Unlock()

	old.Release()
	s.clearHighlight()
}

func (s *Session) clearHighlight() {
	if s.overlay != nil {
		s.overlay.Clear()
	}
}

// finish applies an upload outcome if it still belongs to the current
// submission.
func (s *Session) finish(ctx context.Context, u *Upload, features []feature.Feature, err error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.gen != s.gen {
		s.logger.DebugContext(ctx, "session: discarding superseded upload", "file", u.file.Name)
		return s.state, ErrSuperseded
	}
	if err != nil {
		s.state = Failed{Preview: u.preview, Message: api.ErrorMessage(err), Err: err}
		s.logger.WarnContext(ctx, "session: upload failed", "file", u.file.Name, "error", err)
		return s.state, err
	}
	s.state = Complete{Preview: u.preview, Features: features}
	s.logger.InfoContext(ctx, "session: analysis complete", "file", u.file.Name, "features", len(features))
	return s.state, nil
}

// Upload is one issued submission.
type Upload struct {
	session *Session
	gen     uint64
	file    File
	preview *Preview
}

// File returns the submitted drawing.
func (u *Upload) File() File { return u.file }

// Run performs the single upload request and applies Complete or Failed.
// There is no retry. The returned state is the session state afterwards.
func (u *Upload) Run(ctx context.Context) (State, error) {
	if u == nil || u.session == nil {
		return nil, fmt.Errorf("session: nil upload")
	}
	features, err := u.session.uploader.Upload(ctx, u.file.Name, u.file.ContentType, bytes.NewReader(u.file.Data))
	return u.session.finish(ctx, u, features, err)
}

package session

import "github.com/jask/scandraw/internal/feature"

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePreviewing Phase = "previewing"
	PhaseProcessing Phase = "processing"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
)

// State is one of Idle, Previewing, Processing, Complete or Failed.
type State interface {
	Phase() Phase
	preview() *Preview
}

type Idle struct{}

// Previewing holds a picked file that has not been submitted yet.
type Previewing struct {
	Preview *Preview
}

// Processing means exactly one upload is in flight.
type Processing struct {
	Preview *Preview
}

type Complete struct {
	Preview  *Preview
	Features []feature.Feature
}

// Failed carries the user-facing message and the underlying error.
type Failed struct {
	Preview *Preview
	Message string
	Err     error
}

func (Idle) Phase() Phase       { return PhaseIdle }
func (Previewing) Phase() Phase { return PhasePreviewing }
func (Processing) Phase() Phase { return PhaseProcessing }
func (Complete) Phase() Phase   { return PhaseComplete }
func (Failed) Phase() Phase     { return PhaseFailed }

func (Idle) preview() *Preview         { return nil }
func (s Previewing) preview() *Preview { return s.Preview }
func (s Processing) preview() *Preview { return s.Preview }
func (s Complete) preview() *Preview   { return s.Preview }
func (s Failed) preview() *Preview     { return s.Preview }

// PreviewOf returns the preview handle of any state, or nil for Idle.
func PreviewOf(s State) *Preview {
	if s == nil {
		return nil
	}
	return s.preview()
}

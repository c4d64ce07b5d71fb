package controller

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/jask/scandraw/internal/api"
	"github.com/jask/scandraw/internal/feature"
	"github.com/jask/scandraw/internal/health"
	"github.com/jask/scandraw/internal/overlay"
	"github.com/jask/scandraw/internal/session"
)

type stubUploader struct {
	features []feature.Feature
	err      error
}

func (s stubUploader) Upload(_ context.Context, _, _ string, r io.Reader) ([]feature.Feature, error) {
	_, _ = io.Copy(io.Discard, r)
	return s.features, s.err
}

type stubProber struct {
	engine string
	err    error
}

func (s stubProber) Health(context.Context) (api.HealthResponse, error) {
	return api.HealthResponse{Engine: s.engine}, s.err
}

type memHistory struct {
	mu      sync.Mutex
	records []string
	err     error
}

func (m *memHistory) Record(_ context.Context, f session.File, engine string, features []feature.Feature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, f.Name+"|"+engine)
	return nil
}

var pdf = session.File{Name: "plate.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7\n")}

func box(v float64) *feature.Region {
	r := feature.NewRegion(v, v, v+100, v+100)
	return &r
}

func mounted(t *testing.T, d Deps) *Controller {
	t.Helper()
	d.MonitorOptions = append(d.MonitorOptions, health.WithClock(clockwork.NewFakeClock()))
	c := New(d)
	changed := make(chan health.Connectivity, 4)
	unsub := c.Monitor().OnChange(func(h health.Connectivity) { changed <- h })
	t.Cleanup(unsub)
	c.Mount(context.Background())
	t.Cleanup(c.Unmount)
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no probe result")
	}
	return c
}

func TestSubmitRecordsHistoryWithEngine(t *testing.T) {
	t.Parallel()

	features := []feature.Feature{
		{Type: feature.KindGDT, Subtype: "Flatness", Value: "0.05"},
		{Type: feature.KindDimension, Value: "Ø20", Box: box(100)},
	}
	hist := &memHistory{}
	c := mounted(t, Deps{
		Uploader: stubUploader{features: features},
		Prober:   stubProber{engine: "Gemini Flash 2.0 (Cloud)"},
		History:  hist,
	})
	require.Equal(t, health.Connectivity{Status: health.StatusOnline, Engine: "Gemini Flash 2.0 (Cloud)"}, c.View().Connectivity)

	up, err := c.Submit(pdf)
	require.NoError(t, err)
	require.Equal(t, session.PhaseProcessing, c.View().State.Phase())
	require.False(t, c.View().CanSubmit())

	_, err = up.Run(context.Background())
	require.NoError(t, err)

	v := c.View()
	require.Equal(t, session.PhaseComplete, v.State.Phase())
	require.Len(t, v.Groups.Dimensions, 1)
	require.Len(t, v.Groups.GDT, 1)
	require.Equal(t, feature.KindDimension, v.Sorted[0].Type)
	require.Equal(t, []string{"plate.pdf|Gemini Flash 2.0 (Cloud)"}, hist.records)
}

func TestHistoryFailureIsNotSurfaced(t *testing.T) {
	t.Parallel()

	c := New(Deps{
		Uploader: stubUploader{features: []feature.Feature{{Type: feature.KindDimension}}},
		History:  &memHistory{err: errors.New("disk full")},
	})
	up, err := c.Submit(pdf)
	require.NoError(t, err)

	st, err := up.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, session.PhaseComplete, st.Phase())
}

func TestFailedUploadIsNotRecorded(t *testing.T) {
	t.Parallel()

	hist := &memHistory{}
	c := New(Deps{
		Uploader: stubUploader{err: &api.ServerError{Status: 400, Detail: "Unsupported file format"}},
		History:  hist,
	})
	up, err := c.Submit(pdf)
	require.NoError(t, err)

	st, err := up.Run(context.Background())
	require.Error(t, err)
	failed, ok := st.(session.Failed)
	require.True(t, ok)
	require.Equal(t, "Unsupported file format", failed.Message)
	require.Empty(t, hist.records)
	require.Nil(t, c.View().Sorted)
}

func TestOfflineBlocksSubmit(t *testing.T) {
	t.Parallel()

	c := mounted(t, Deps{
		Uploader: stubUploader{},
		Prober:   stubProber{err: api.ErrTransport},
	})
	v := c.View()
	require.Equal(t, health.StatusOffline, v.Connectivity.Status)
	require.False(t, v.CanSubmit())

	_, err := c.Submit(pdf)
	require.ErrorIs(t, err, session.ErrOffline)
	require.Equal(t, session.PhaseIdle, c.View().State.Phase())
}

func TestHighlightPublishesToSubscribers(t *testing.T) {
	t.Parallel()

	ch := overlay.New()
	c := New(Deps{Uploader: stubUploader{}, Overlay: ch})

	var seen []*feature.Region
	unsub := ch.Subscribe(func(r *feature.Region) { seen = append(seen, r) })
	defer unsub()

	f := feature.Feature{Type: feature.KindDimension, Box: box(250)}
	c.Highlight(&f)
	require.Equal(t, box(250), c.View().Highlight)

	c.Highlight(&feature.Feature{Type: feature.KindGDT})
	require.Nil(t, c.View().Highlight)

	c.Highlight(&f)
	c.Clear()
	require.Nil(t, c.View().Highlight)
	require.Len(t, seen, 4)
	require.Nil(t, seen[3])
}

func TestSubmitClearsHighlight(t *testing.T) {
	t.Parallel()

	c := New(Deps{Uploader: stubUploader{}})
	c.Highlight(&feature.Feature{Box: box(10)})
	require.NotNil(t, c.View().Highlight)

	require.NoError(t, c.Select(pdf))
	require.Nil(t, c.View().Highlight)

	c.Highlight(&feature.Feature{Box: box(10)})
	_, err := c.SubmitSelected()
	require.NoError(t, err)
	require.Nil(t, c.View().Highlight)
}

func TestUnmountIsIdempotent(t *testing.T) {
	t.Parallel()

	c := New(Deps{Prober: stubProber{}, MonitorOptions: []health.Option{health.WithClock(clockwork.NewFakeClock())}})
	c.Mount(context.Background())
	c.Unmount()
	c.Unmount()
}

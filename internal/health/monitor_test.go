package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/jask/scandraw/internal/api"
)

type proberFunc func(ctx context.Context) (api.HealthResponse, error)

func (f proberFunc) Health(ctx context.Context) (api.HealthResponse, error) { return f(ctx) }

var errDown = errors.New("connection refused")

func TestOutOfOrderSuccessIsDiscarded(t *testing.T) {
	t.Parallel()

	m := NewMonitor(nil)
	m.apply(2, api.HealthResponse{}, errDown)
	m.apply(3, api.HealthResponse{}, errDown)
	m.apply(4, api.HealthResponse{}, errDown)
	// probe 1 was slow and succeeds last
	m.apply(1, api.HealthResponse{Engine: "Gemini Flash 2.0 (Cloud)"}, nil)

	require.Equal(t, Connectivity{Status: StatusOffline, Engine: UnknownEngine}, m.Connectivity())
}

func TestEngineLabelRules(t *testing.T) {
	t.Parallel()

	m := NewMonitor(nil)
	require.Equal(t, StatusChecking, m.Connectivity().Status)

	m.apply(1, api.HealthResponse{}, nil)
	require.Equal(t, Connectivity{Status: StatusOnline, Engine: ""}, m.Connectivity())

	m.apply(2, api.HealthResponse{Engine: "Qwen 2.5 VL (Cloud)"}, nil)
	require.Equal(t, Connectivity{Status: StatusOnline, Engine: "Qwen 2.5 VL (Cloud)"}, m.Connectivity())

	m.apply(3, api.HealthResponse{}, nil)
	require.Equal(t, "Qwen 2.5 VL (Cloud)", m.Connectivity().Engine, "absent engine keeps the previous label")

	m.apply(4, api.HealthResponse{}, errDown)
	require.Equal(t, Connectivity{Status: StatusOffline, Engine: UnknownEngine}, m.Connectivity())

	m.apply(5, api.HealthResponse{}, nil)
	require.Equal(t, Connectivity{Status: StatusOnline, Engine: UnknownEngine}, m.Connectivity())
}

func TestFirstSuccessWithoutEngineLeavesLabelEmpty(t *testing.T) {
	t.Parallel()

	m := NewMonitor(nil)
	m.apply(1, api.HealthResponse{Message: "ok"}, nil)
	require.Equal(t, Connectivity{Status: StatusOnline}, m.Connectivity())
}

func TestSupersededDispatchIsSkipped(t *testing.T) {
	t.Parallel()

	m := NewMonitor(nil)
	var got []Connectivity
	m.OnChange(func(c Connectivity) { got = append(got, c) })

	m.apply(2, api.HealthResponse{Engine: "Qwen"}, nil)
	// probe 1 applied earlier but reached dispatch after probe 2
	m.notify(1, Connectivity{Status: StatusOffline, Engine: UnknownEngine})

	require.Equal(t, []Connectivity{{Status: StatusOnline, Engine: "Qwen"}}, got)
}

func TestTimeoutClampedBelowInterval(t *testing.T) {
	t.Parallel()

	m := NewMonitor(nil, WithInterval(2*time.Second), WithTimeout(5*time.Second))
	require.Equal(t, time.Second, m.timeout)
}

func TestStartProbesImmediatelyThenEveryInterval(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	calls := make(chan struct{}, 8)
	p := proberFunc(func(context.Context) (api.HealthResponse, error) {
		calls <- struct{}{}
		return api.HealthResponse{Engine: "Qwen"}, nil
	})
	m := NewMonitor(p, WithClock(clock))

	changes := make(chan Connectivity, 8)
	unsub := m.OnChange(func(c Connectivity) { changes <- c })
	defer unsub()

	stop := m.Start(ctx)
	again := m.Start(ctx)
	require.NotNil(t, again)

	waitFor(t, calls)
	require.Equal(t, Connectivity{Status: StatusOnline, Engine: "Qwen"}, waitFor(t, changes))

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultInterval)
	waitFor(t, calls)
	waitFor(t, changes)

	stop()
	stop()
	clock.Advance(3 * DefaultInterval)
	select {
	case <-calls:
		t.Fatal("probe issued after stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStalledProbeCountsAsFailure(t *testing.T) {
	t.Parallel()

	p := proberFunc(func(ctx context.Context) (api.HealthResponse, error) {
		<-ctx.Done()
		return api.HealthResponse{}, ctx.Err()
	})
	m := NewMonitor(p, WithInterval(time.Hour), WithTimeout(20*time.Millisecond))
	changes := make(chan Connectivity, 1)
	m.OnChange(func(c Connectivity) { changes <- c })

	stop := m.Start(context.Background())
	defer stop()

	require.Equal(t, Connectivity{Status: StatusOffline, Engine: UnknownEngine}, waitFor(t, changes))
}

func TestStopDiscardsInFlightProbe(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	p := proberFunc(func(ctx context.Context) (api.HealthResponse, error) {
		close(started)
		<-ctx.Done()
		return api.HealthResponse{}, ctx.Err()
	})
	m := NewMonitor(p, WithInterval(time.Hour), WithTimeout(30*time.Minute))
	m.Start(context.Background())
	waitFor(t, started)

	m.Stop()
	require.Equal(t, StatusChecking, m.Connectivity().Status)
}

func TestRestartAfterStop(t *testing.T) {
	t.Parallel()

	calls := make(chan struct{}, 4)
	p := proberFunc(func(context.Context) (api.HealthResponse, error) {
		calls <- struct{}{}
		return api.HealthResponse{}, nil
	})
	m := NewMonitor(p, WithClock(clockwork.NewFakeClock()))

	m.Start(context.Background())
	waitFor(t, calls)
	m.Stop()

	m.Start(context.Background())
	waitFor(t, calls)
	m.Stop()
}

func waitFor[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
	var zero T
	return zero
}

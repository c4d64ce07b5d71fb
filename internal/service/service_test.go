package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/scandraw/internal/api"
	"github.com/jask/scandraw/internal/database"
	"github.com/jask/scandraw/internal/database/repository"
	"github.com/jask/scandraw/internal/feature"
	"github.com/jask/scandraw/internal/secrets"
	"github.com/jask/scandraw/internal/session"
)

func newHistory(t *testing.T) (*HistoryService, *MaintenanceService) {
	t.Helper()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &HistoryService{Analyses: repository.NewAnalysisRepo(db)}, &MaintenanceService{DB: db}
}

func TestHistoryRecordAndLoad(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hist, _ := newHistory(t)
	at := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	hist.Now = func() time.Time { return at }

	box := feature.NewRegion(100, 200, 300, 400)
	features := []feature.Feature{
		{Type: feature.KindGDT, Subtype: "Position", Value: "Ø0.1", Datum: "A", Page: 1},
		{Type: feature.KindDimension, Value: "Ø12", Tolerance: "H7", Page: 2, Box: &box},
	}
	file := session.File{Name: "hub.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}
	require.NoError(t, hist.Record(ctx, file, "Gemini Flash 2.0 (Cloud)", features))

	recent, err := hist.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	e := recent[0]
	require.Equal(t, "hub.pdf", e.FileName)
	require.Equal(t, 2, e.FeatureCount)
	require.Equal(t, 1, e.GDTCount)
	require.Nil(t, e.Features)
	require.True(t, at.Equal(e.CreatedAt))

	loaded, err := hist.Load(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, features, loaded.Features)
	require.Equal(t, "Gemini Flash 2.0 (Cloud)", loaded.Engine)

	require.NoError(t, hist.Delete(ctx, e.ID))
	_, err = hist.Load(ctx, e.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMaintenanceResetClearsHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hist, maint := newHistory(t)
	file := session.File{Name: "a.png", ContentType: "image/png"}
	require.NoError(t, hist.Record(ctx, file, "", nil))
	require.NoError(t, hist.Record(ctx, file, "", nil))

	require.NoError(t, maint.Reset(ctx))
	recent, err := hist.Recent(ctx, "", 0)
	require.NoError(t, err)
	require.Empty(t, recent)

	require.Error(t, (&MaintenanceService{}).Reset(ctx))
}

type fakeAuthClient struct {
	token    string
	loginErr error
	regErr   error
	applied  []string
}

func (f *fakeAuthClient) Login(context.Context, string, string) (string, error) {
	return f.token, f.loginErr
}

func (f *fakeAuthClient) Register(context.Context, string, string) error { return f.regErr }

func (f *fakeAuthClient) SetToken(token string) { f.applied = append(f.applied, token) }

func TestAuthLoginRestoreLogout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	client := &fakeAuthClient{token: "tok-1"}
	auth := &AuthService{Client: client, Tokens: secrets.NewStore(dir)}

	_, ok := auth.Restore()
	require.False(t, ok)
	require.False(t, auth.LoggedIn())

	require.NoError(t, auth.Login(context.Background(), " ada@example.com ", "pw"))
	require.True(t, auth.LoggedIn())
	require.Equal(t, "ada@example.com", auth.Email())

	// a fresh process picks the token up again
	client2 := &fakeAuthClient{}
	again := &AuthService{Client: client2, Tokens: secrets.NewStore(dir)}
	email, ok := again.Restore()
	require.True(t, ok)
	require.Equal(t, "ada@example.com", email)
	require.Equal(t, []string{"tok-1"}, client2.applied)

	require.NoError(t, again.Logout())
	require.False(t, again.LoggedIn())
	require.Equal(t, []string{"tok-1", ""}, client2.applied)
	_, ok = (&AuthService{Client: &fakeAuthClient{}, Tokens: secrets.NewStore(dir)}).Restore()
	require.False(t, ok)
}

type stuckTokens struct {
	*secrets.Store
}

func (stuckTokens) DeleteToken() error { return errors.New("permission denied") }

func TestAuthLogoutKeepsSessionWhenTokenRemains(t *testing.T) {
	t.Parallel()

	client := &fakeAuthClient{token: "tok-1"}
	auth := &AuthService{Client: client, Tokens: stuckTokens{secrets.NewStore(t.TempDir())}}
	require.NoError(t, auth.Login(context.Background(), "ada@example.com", "pw"))

	require.Error(t, auth.Logout())
	require.True(t, auth.LoggedIn())
	require.Equal(t, "ada@example.com", auth.Email())
	require.Equal(t, []string{"tok-1"}, client.applied)
}

func TestAuthLoginFailures(t *testing.T) {
	t.Parallel()

	auth := &AuthService{Client: &fakeAuthClient{loginErr: api.ErrAuthPending}, Tokens: secrets.NewStore(t.TempDir())}
	err := auth.Login(context.Background(), "ada@example.com", "pw")
	require.ErrorIs(t, err, api.ErrAuthPending)
	require.Equal(t, "Your account is pending approval by the Administrator. Please check back later.", api.ErrorMessage(err))
	require.False(t, auth.LoggedIn())

	require.Error(t, auth.Login(context.Background(), "", "pw"))
}

func TestAuthRegister(t *testing.T) {
	t.Parallel()

	fail := &api.ServerError{Status: 400, Detail: "Email already registered"}
	auth := &AuthService{Client: &fakeAuthClient{regErr: fail}, Tokens: secrets.NewStore(t.TempDir())}
	err := auth.Register(context.Background(), "ada@example.com", "pw")
	require.Equal(t, "Email already registered", api.ErrorMessage(err))
	require.False(t, auth.LoggedIn())

	ok := &AuthService{Client: &fakeAuthClient{}, Tokens: secrets.NewStore(t.TempDir())}
	require.NoError(t, ok.Register(context.Background(), "ada@example.com", "pw"))
}

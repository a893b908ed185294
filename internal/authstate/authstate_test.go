package authstate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	"s8garante/internal/pkg/logger"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	profile *domain.Profile
	err     error
}

func (f *fakeFetcher) GetUserProfile(_ context.Context, _ *authstate.Session) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.profile == nil {
		return nil, f.err
	}
	cp := *f.profile
	return &cp, f.err
}

func (f *fakeFetcher) set(p *domain.Profile) {
	f.mu.Lock()
	f.profile = p
	f.mu.Unlock()
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCloser struct {
	notifier *authstate.Notifier
	err      error
}

func (c *fakeCloser) SignOut(_ context.Context, s *authstate.Session) error {
	if c.err != nil {
		return c.err
	}
	c.notifier.Publish(authstate.Event{Kind: authstate.EventSignedOut, Session: s, UserID: s.UserID})
	return nil
}

func session() *authstate.Session {
	return &authstate.Session{ID: "sess-1", UserID: "u1", Email: "u1@ex.com", ExpiresAt: time.Now().Add(time.Hour)}
}

func agency(changed bool) *domain.Profile {
	return &domain.Profile{
		ID: "u1", Type: domain.UserTypeImobiliaria, PasswordChanged: changed,
		Agency: &domain.AgencyData{CompanyName: "Imob", CNPJ: "12345678000190"},
	}
}

func newProvider(f *fakeFetcher) (*authstate.Provider, *authstate.Notifier, *fakeCloser) {
	n := authstate.NewNotifier()
	c := &fakeCloser{notifier: n}
	return authstate.NewProvider(f, c, n, logger.Nop()), n, c
}

func TestState_RolePredicatesFailClosed(t *testing.T) {
	s := session()
	admin := &domain.Profile{ID: "u1", Type: domain.UserTypeAdmin, PasswordChanged: true}

	for _, st := range []authstate.State{authstate.Anonymous(), authstate.Loading(s), authstate.Degraded(s)} {
		assert.False(t, st.IsAdmin(), st.Phase.String())
		assert.False(t, st.IsImobiliaria(), st.Phase.String())
		assert.False(t, st.PasswordChanged(), st.Phase.String())
	}

	st := authstate.Authenticated(s, admin)
	assert.True(t, st.IsAdmin())
	assert.False(t, st.IsImobiliaria())
	assert.True(t, st.PasswordChanged())
	assert.Equal(t, "authenticated", st.Snapshot().Phase)
}

func TestResolve_NilOrExpiredSessionIsAnonymous(t *testing.T) {
	f := &fakeFetcher{profile: agency(true)}
	p, _, _ := newProvider(f)

	assert.Equal(t, authstate.PhaseAnonymous, p.Resolve(context.Background(), nil).Phase)

	expired := session()
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	assert.Equal(t, authstate.PhaseAnonymous, p.Resolve(context.Background(), expired).Phase)
	assert.Equal(t, 0, f.count())
}

func TestResolve_CachesAuthenticatedState(t *testing.T) {
	f := &fakeFetcher{profile: agency(true)}
	p, _, _ := newProvider(f)
	s := session()

	st := p.Resolve(context.Background(), s)
	require.Equal(t, authstate.PhaseAuthenticated, st.Phase)
	assert.True(t, st.IsImobiliaria())

	p.Resolve(context.Background(), s)
	assert.Equal(t, 1, f.count())
}

func TestResolve_MissingOrFailingProfileIsDegraded(t *testing.T) {
	f := &fakeFetcher{}
	p, _, _ := newProvider(f)

	st := p.Resolve(context.Background(), session())
	assert.Equal(t, authstate.PhaseDegraded, st.Phase)
	assert.False(t, st.IsImobiliaria())

	f.err = errors.New("db down")
	st = p.Resolve(context.Background(), session())
	assert.Equal(t, authstate.PhaseDegraded, st.Phase)

	// Degradado não fica em cache
	assert.Equal(t, 2, f.count())
}

func TestRefreshProfile_ObservesDirectWrite(t *testing.T) {
	f := &fakeFetcher{profile: agency(false)}
	p, _, _ := newProvider(f)
	s := session()

	require.False(t, p.Resolve(context.Background(), s).PasswordChanged())

	f.set(agency(true))
	st := p.RefreshProfile(context.Background(), s.ID)

	assert.True(t, st.PasswordChanged())
	assert.True(t, p.Resolve(context.Background(), s).PasswordChanged())
}

func TestUserUpdatedEventRefreshesSessions(t *testing.T) {
	f := &fakeFetcher{profile: agency(false)}
	p, n, _ := newProvider(f)
	p.Start(context.Background())
	defer p.Close()

	s := session()
	p.Resolve(context.Background(), s)
	states, cancel := p.Watch(s.ID)
	defer cancel()

	f.set(agency(true))
	n.Publish(authstate.Event{Kind: authstate.EventUserUpdated, UserID: "u1"})

	require.Eventually(t, func() bool {
		for {
			select {
			case st := <-states:
				if st.Phase == authstate.PhaseAuthenticated && st.PasswordChanged() {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)
}

// gatedFetcher segura a busca de perfil dos usuários em hold até gate fechar.
// A leitura do perfil acontece antes da espera, como numa consulta lenta.
type gatedFetcher struct {
	*fakeFetcher
	hold    map[string]bool
	started chan string
	gate    chan struct{}
}

func (g *gatedFetcher) GetUserProfile(ctx context.Context, s *authstate.Session) (*domain.Profile, error) {
	p, err := g.fakeFetcher.GetUserProfile(ctx, s)
	g.fakeFetcher.mu.Lock()
	held := g.hold[s.ID]
	delete(g.hold, s.ID)
	g.fakeFetcher.mu.Unlock()
	if held {
		g.started <- s.ID
		<-g.gate
	}
	return p, err
}

func TestRefreshUser_DoesNotWaitForBusyEventLoop(t *testing.T) {
	f := &fakeFetcher{profile: agency(false)}
	g := &gatedFetcher{fakeFetcher: f, hold: map[string]bool{"sess-2": true}, started: make(chan string, 1), gate: make(chan struct{})}
	n := authstate.NewNotifier()
	p := authstate.NewProvider(g, &fakeCloser{notifier: n}, n, logger.Nop())
	p.Start(context.Background())
	defer p.Close()
	defer close(g.gate)

	s := session()
	require.False(t, p.Resolve(context.Background(), s).PasswordChanged())

	// Outro login ocupa o loop de eventos.
	other := &authstate.Session{ID: "sess-2", UserID: "u2", ExpiresAt: time.Now().Add(time.Hour)}
	n.Publish(authstate.Event{Kind: authstate.EventSignedIn, Session: other, UserID: "u2"})
	require.Equal(t, "sess-2", <-g.started)

	f.set(agency(true))
	n.Publish(authstate.Event{Kind: authstate.EventUserUpdated, UserID: "u1"})
	p.RefreshUser(context.Background(), "u1")

	assert.True(t, p.Resolve(context.Background(), s).PasswordChanged())
}

func TestRefreshProfile_StaleFetchDoesNotOverwriteNewer(t *testing.T) {
	f := &fakeFetcher{profile: agency(false)}
	g := &gatedFetcher{fakeFetcher: f, hold: map[string]bool{}, started: make(chan string, 1), gate: make(chan struct{})}
	n := authstate.NewNotifier()
	p := authstate.NewProvider(g, &fakeCloser{notifier: n}, n, logger.Nop())

	s := session()
	require.False(t, p.Resolve(context.Background(), s).PasswordChanged())

	f.mu.Lock()
	g.hold[s.ID] = true
	f.mu.Unlock()

	stale := make(chan authstate.State, 1)
	go func() { stale <- p.RefreshProfile(context.Background(), s.ID) }()
	<-g.started

	f.set(agency(true))
	assert.True(t, p.RefreshProfile(context.Background(), s.ID).PasswordChanged())

	close(g.gate)
	assert.True(t, (<-stale).PasswordChanged())
	assert.True(t, p.Resolve(context.Background(), s).PasswordChanged())
}

func TestSignOut_RepublishesAnonymous(t *testing.T) {
	f := &fakeFetcher{profile: agency(true)}
	p, _, _ := newProvider(f)
	p.Start(context.Background())
	defer p.Close()

	s := session()
	p.Resolve(context.Background(), s)
	states, _ := p.Watch(s.ID)

	require.NoError(t, p.SignOut(context.Background(), s))

	var last authstate.State
	for st := range states {
		last = st
	}
	assert.Equal(t, authstate.PhaseAnonymous, last.Phase)
}

func TestSignOut_PropagatesFailure(t *testing.T) {
	f := &fakeFetcher{profile: agency(true)}
	p, _, c := newProvider(f)
	c.err = errors.New("revogação falhou")
	s := session()
	p.Resolve(context.Background(), s)

	assert.Error(t, p.SignOut(context.Background(), s))
	assert.Equal(t, authstate.PhaseAuthenticated, p.Resolve(context.Background(), s).Phase)
}

func TestNotifier_UnsubscribeStopsDelivery(t *testing.T) {
	n := authstate.NewNotifier()
	sub := n.Subscribe(1)
	n.Publish(authstate.Event{Kind: authstate.EventSignedIn, UserID: "u1"})
	ev := <-sub.C
	assert.Equal(t, authstate.EventSignedIn, ev.Kind)

	sub.Unsubscribe()
	sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		n.Publish(authstate.Event{Kind: authstate.EventSignedOut})
		n.Publish(authstate.Event{Kind: authstate.EventSignedOut})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish bloqueou após Unsubscribe")
	}
}

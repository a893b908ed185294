package authstate

import (
	"context"
	"sync"
	"time"

	"s8garante/internal/domain"
	"s8garante/internal/pkg/logger"
)

// ProfileFetcher busca o perfil do sujeito da sessão. (nil, nil) significa
// perfil inexistente.
type ProfileFetcher interface {
	GetUserProfile(ctx context.Context, session *Session) (*domain.Profile, error)
}

// SessionCloser encerra uma sessão no armazenamento de sessões.
type SessionCloser interface {
	SignOut(ctx context.Context, session *Session) error
}

type entry struct {
	state    State
	loading  chan struct{} // não-nil enquanto há uma busca em andamento
	gen      uint64        // só a busca mais recente grava o estado
	watchers []chan State
}

// Provider mantém o estado de autenticação de cada sessão e o atualiza a
// partir dos eventos do Notifier. O estado pode ficar desatualizado em
// relação a outros processos até o próximo evento ou RefreshProfile.
type Provider struct {
	fetcher  ProfileFetcher
	closer   SessionCloser
	notifier *Notifier
	logger   logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	sub       *Subscription
	stop      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewProvider cria o provider. Start deve ser chamado para assinar os eventos.
func NewProvider(fetcher ProfileFetcher, closer SessionCloser, notifier *Notifier, log logger.Logger) *Provider {
	return &Provider{
		fetcher:  fetcher,
		closer:   closer,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
		entries:  make(map[string]*entry),
		stop:     make(chan struct{}),
	}
}

// Start assina o Notifier e processa eventos até Close ou o cancelamento de ctx.
func (p *Provider) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.sub = p.notifier.Subscribe(32)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case ev := <-p.sub.C:
					p.handle(ctx, ev)
				case <-p.stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		p.logger.Info("Provider de autenticação iniciado.", nil)
	})
}

// Close cancela a assinatura e espera o loop de eventos terminar.
func (p *Provider) Close() {
	p.closeOnce.Do(func() {
		if p.sub != nil {
			p.sub.Unsubscribe()
		}
		close(p.stop)
		p.wg.Wait()

		p.mu.Lock()
		for id, e := range p.entries {
			for _, w := range e.watchers {
				close(w)
			}
			delete(p.entries, id)
		}
		p.mu.Unlock()
	})
}

func (p *Provider) handle(ctx context.Context, ev Event) {
	p.logger.Debug("Evento de autenticação recebido.", map[string]interface{}{"evento": ev.Kind.String(), "user_id": ev.UserID})

	switch ev.Kind {
	case EventSignedIn:
		p.prune()
		if ev.Session != nil {
			p.load(ctx, ev.Session)
		}
	case EventSignedOut:
		if ev.Session != nil {
			p.drop(ev.Session.ID)
		}
	case EventUserUpdated:
		p.RefreshUser(ctx, ev.UserID)
	}
}

// Resolve devolve o estado da sessão, buscando o perfil quando necessário.
// Sessão nil ou vencida resulta em Anonymous. Se ctx terminar enquanto outra
// busca da mesma sessão está em andamento, devolve Loading.
func (p *Provider) Resolve(ctx context.Context, session *Session) State {
	if session == nil || session.Expired(p.now()) {
		if session != nil {
			p.drop(session.ID)
		}
		return Anonymous()
	}

	p.mu.Lock()
	e, ok := p.entries[session.ID]
	if ok && e.loading != nil {
		wait := e.loading
		p.mu.Unlock()
		select {
		case <-wait:
			return p.Resolve(ctx, session)
		case <-ctx.Done():
			return Loading(session)
		}
	}
	if ok && e.state.Phase == PhaseAuthenticated {
		st := e.state
		p.mu.Unlock()
		return st
	}
	p.mu.Unlock()

	return p.load(ctx, session)
}

// RefreshProfile busca de novo o perfil de uma sessão conhecida.
// Sessões desconhecidas resultam em Anonymous.
func (p *Provider) RefreshProfile(ctx context.Context, sessionID string) State {
	p.mu.Lock()
	e, ok := p.entries[sessionID]
	var session *Session
	if ok {
		session = e.state.Session
	}
	p.mu.Unlock()

	if session == nil {
		return Anonymous()
	}
	return p.load(ctx, session)
}

// RefreshUser relê o perfil de todas as sessões conhecidas do usuário.
// Quem escreve no perfil chama direto, sem esperar o evento USER_UPDATED.
func (p *Provider) RefreshUser(ctx context.Context, userID string) {
	for _, s := range p.sessionsOf(userID) {
		p.load(ctx, s)
	}
}

// SignOut encerra a sessão pela fachada. O estado Anonymous é republicado
// quando o evento SIGNED_OUT chega; a entrada local é descartada já aqui.
func (p *Provider) SignOut(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}
	if err := p.closer.SignOut(ctx, session); err != nil {
		return err
	}
	p.drop(session.ID)
	return nil
}

// Watch devolve um canal com cada estado republicado para a sessão e uma
// função para cancelar. Estados são descartados se o canal estiver cheio.
func (p *Provider) Watch(sessionID string) (<-chan State, func()) {
	ch := make(chan State, 4)

	p.mu.Lock()
	e, ok := p.entries[sessionID]
	if !ok {
		e = &entry{state: Anonymous()}
		p.entries[sessionID] = e
	}
	e.watchers = append(e.watchers, ch)
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		cur, ok := p.entries[sessionID]
		if !ok {
			return
		}
		for i, w := range cur.watchers {
			if w == ch {
				cur.watchers = append(cur.watchers[:i], cur.watchers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// load executa a busca do perfil: Loading -> Authenticated ou Degraded.
func (p *Provider) load(ctx context.Context, session *Session) State {
	p.mu.Lock()
	e, ok := p.entries[session.ID]
	if !ok {
		e = &entry{}
		p.entries[session.ID] = e
	}
	done := make(chan struct{})
	e.loading = done
	e.gen++
	gen := e.gen
	p.setLocked(e, Loading(session))
	p.mu.Unlock()

	profile, err := p.fetcher.GetUserProfile(ctx, session)

	var st State
	switch {
	case err != nil:
		p.logger.Warn("Perfil indisponível; sessão em estado degradado.", map[string]interface{}{
			"user_id": session.UserID, "error": err.Error(),
		})
		st = Degraded(session)
	case profile == nil:
		p.logger.Warn("Sessão sem perfil; estado degradado.", map[string]interface{}{"user_id": session.UserID})
		st = Degraded(session)
	default:
		st = Authenticated(session, profile)
	}

	p.mu.Lock()
	// A sessão pode ter sido encerrada durante a busca, ou uma busca mais
	// recente pode ter começado; nesse caso vale o resultado dela.
	var newer chan struct{}
	cur, ok := p.entries[session.ID]
	switch {
	case !ok || cur != e:
		st = Anonymous()
	case e.gen == gen:
		p.setLocked(e, st)
		e.loading = nil
	case e.loading != nil:
		newer = e.loading
	default:
		st = e.state
	}
	p.mu.Unlock()
	close(done)

	if newer != nil {
		select {
		case <-newer:
		case <-ctx.Done():
			return Loading(session)
		}
		p.mu.Lock()
		st = e.state
		p.mu.Unlock()
	}
	return st
}

func (p *Provider) setLocked(e *entry, st State) {
	e.state = st
	for _, w := range e.watchers {
		select {
		case w <- st:
		default:
		}
	}
}

func (p *Provider) drop(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[sessionID]
	if !ok {
		return
	}
	p.setLocked(e, Anonymous())
	for _, w := range e.watchers {
		close(w)
	}
	delete(p.entries, sessionID)
}

func (p *Provider) sessionsOf(userID string) []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Session
	for _, e := range p.entries {
		if e.state.Session != nil && e.state.Session.UserID == userID {
			out = append(out, e.state.Session)
		}
	}
	return out
}

// prune remove sessões vencidas sem observadores.
func (p *Provider) prune() {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.entries {
		if e.loading == nil && len(e.watchers) == 0 && e.state.Session.Expired(now) {
			delete(p.entries, id)
		}
	}
}

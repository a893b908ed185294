package authstate

import "sync"

// EventKind identifica uma mudança de autenticação.
type EventKind int

const (
	EventSignedIn EventKind = iota + 1
	EventSignedOut
	EventUserUpdated
)

func (k EventKind) String() string {
	switch k {
	case EventSignedIn:
		return "SIGNED_IN"
	case EventSignedOut:
		return "SIGNED_OUT"
	case EventUserUpdated:
		return "USER_UPDATED"
	default:
		return "UNKNOWN"
	}
}

// Event é publicado pela fachada de autenticação. Session vem preenchida em
// SIGNED_IN e SIGNED_OUT; UserID sempre.
type Event struct {
	Kind    EventKind
	Session *Session
	UserID  string
}

// Notifier distribui eventos de autenticação aos assinantes.
type Notifier struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewNotifier cria um Notifier sem assinantes.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[*Subscription]struct{})}
}

// Subscription é uma assinatura ativa. Eventos chegam em C até Unsubscribe.
type Subscription struct {
	C <-chan Event

	ch       chan Event
	done     chan struct{}
	once     sync.Once
	notifier *Notifier
}

// Subscribe registra um assinante com buffer de tamanho buffer.
func (n *Notifier) Subscribe(buffer int) *Subscription {
	ch := make(chan Event, buffer)
	sub := &Subscription{C: ch, ch: ch, done: make(chan struct{}), notifier: n}

	n.mu.Lock()
	n.subs[sub] = struct{}{}
	n.mu.Unlock()
	return sub
}

// Unsubscribe remove a assinatura. Pode ser chamado mais de uma vez.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.notifier.mu.Lock()
		delete(s.notifier.subs, s)
		s.notifier.mu.Unlock()
		close(s.done)
	})
}

// Publish entrega o evento a todos os assinantes. Bloqueia enquanto o buffer
// de um assinante estiver cheio; assinaturas canceladas são ignoradas.
func (n *Notifier) Publish(ev Event) {
	n.mu.RLock()
	subs := make([]*Subscription, 0, len(n.subs))
	for s := range n.subs {
		subs = append(subs, s)
	}
	n.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		}
	}
}

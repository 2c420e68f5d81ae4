package session

import (
	"sync"

	"campusrecords/internal/bus"
	"campusrecords/internal/model"
)

// Navigator tracks what one mounted view should render. It follows the
// account and navigate topics until Close is called.
type Navigator struct {
	mu        sync.Mutex
	account   *model.Account
	requested Page
	closed    bool
	unsubs    []bus.Unsubscribe
}

// NewNavigator subscribes a navigator to b, starting from the stored account.
func NewNavigator(b *bus.Bus, initial *model.Account) *Navigator {
	n := &Navigator{account: initial}
	n.unsubs = []bus.Unsubscribe{
		b.Subscribe(bus.TopicAccount, n.onAccount),
		b.Subscribe(bus.TopicNavigate, n.onNavigate),
	}
	return n
}

func (n *Navigator) onAccount(ev bus.Event) {
	acc, ok := bus.As[model.Account](ev)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	if ok {
		n.account = &acc
	} else {
		n.account = nil
	}
	n.requested = ""
}

func (n *Navigator) onNavigate(ev bus.Event) {
	nav, ok := bus.As[model.Navigate](ev)
	if !ok {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	switch nav.To {
	case model.NavWallet:
		n.requested = PageWallet
	case model.NavDashboard:
		n.requested = ""
	}
}

// Page resolves the page to render now.
func (n *Navigator) Page() Page {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Resolve(n.account, n.requested)
}

// Account returns the account last seen by the navigator.
func (n *Navigator) Account() *model.Account {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.account == nil {
		return nil
	}
	acc := *n.account
	return &acc
}

// GoToRegister is the explicit "create an account" action of the login view.
func (n *Navigator) GoToRegister() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requested = PageRegister
}

// BackToLogin leaves the register page.
func (n *Navigator) BackToLogin() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.requested == PageRegister {
		n.requested = ""
	}
}

// Close unsubscribes the navigator. Events published afterwards are ignored.
func (n *Navigator) Close() {
	n.mu.Lock()
	n.closed = true
	unsubs := n.unsubs
	n.unsubs = nil
	n.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

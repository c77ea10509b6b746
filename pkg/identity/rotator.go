package identity

import "sync"

// Identity is the user agent and proxy a browser launch presents.
type Identity struct {
	UserAgent string
	Proxy     string
}

// Rotator hands out user agents and proxies sequentially, one pair per browser launch.
type Rotator struct {
	mu         sync.Mutex
	userAgents []string
	proxies    []string
	uaIndex    int
	proxyIndex int
}

func NewRotator(userAgents, proxies []string) *Rotator {
	return &Rotator{userAgents: userAgents, proxies: proxies}
}

// Next returns the next identity. Empty lists yield empty fields, which
// means the browser's own user agent and a direct connection.
func (r *Rotator) Next() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id Identity
	if len(r.userAgents) > 0 {
		id.UserAgent = r.userAgents[r.uaIndex]
		r.uaIndex = (r.uaIndex + 1) % len(r.userAgents)
	}
	if len(r.proxies) > 0 {
		id.Proxy = r.proxies[r.proxyIndex]
		r.proxyIndex = (r.proxyIndex + 1) % len(r.proxies)
	}
	return id
}

package goAccess

// WillExpireHandler is implemented by delegates that want a warning before
// the token expires. The application is expected to fetch a fresh token and
// call UpdateToken.
type WillExpireHandler interface {
	TokenWillExpire(m *Manager)
}

// ExpiredHandler is implemented by delegates that want to know when the token
// has expired. It may arrive late if the host's timer substrate was suspended.
type ExpiredHandler interface {
	TokenExpired(m *Manager)
}

// InvalidTokenHandler is implemented by delegates that want to know when
// UpdateToken received a token without a decodable expiry.
type InvalidTokenHandler interface {
	TokenInvalid(m *Manager)
}

// DelegateFuncs adapts plain functions to the delegate capabilities. Any
// field may be nil.
type DelegateFuncs struct {
	OnWillExpire   func(m *Manager)
	OnExpired      func(m *Manager)
	OnInvalidToken func(m *Manager)
}

func (d DelegateFuncs) TokenWillExpire(m *Manager) {
	if d.OnWillExpire != nil {
		d.OnWillExpire(m)
	}
}

func (d DelegateFuncs) TokenExpired(m *Manager) {
	if d.OnExpired != nil {
		d.OnExpired(m)
	}
}

func (d DelegateFuncs) TokenInvalid(m *Manager) {
	if d.OnInvalidToken != nil {
		d.OnInvalidToken(m)
	}
}

// delegateSet holds the capabilities resolved from a delegate value once, at
// Build time.
type delegateSet struct {
	willExpire WillExpireHandler
	expired    ExpiredHandler
	invalid    InvalidTokenHandler
}

func resolveDelegate(d any) delegateSet {
	var out delegateSet
	if d == nil {
		return out
	}
	out.willExpire, _ = d.(WillExpireHandler)
	out.expired, _ = d.(ExpiredHandler)
	out.invalid, _ = d.(InvalidTokenHandler)
	return out
}

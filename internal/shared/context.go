package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// PrincipalFromContext returns the authenticated identity of the request, nil when
// the request is anonymous.
func PrincipalFromContext(ctx context.Context) *Principal {
	sess := SessionFromContext(ctx)
	if !sess.Authenticated() {
		return nil
	}
	return sess.Principal()
}

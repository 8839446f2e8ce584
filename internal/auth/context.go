package auth

import "context"

type actorContextKey struct{}

// ContextWithActor attaches the resolved actor to the context.
func ContextWithActor(ctx context.Context, actor ActorContext) context.Context {
	return context.WithValue(ctx, actorContextKey{}, &actor)
}

// ActorFromContext extracts the resolved actor, if any.
func ActorFromContext(ctx context.Context) (ActorContext, bool) {
	if ctx == nil {
		return ActorContext{}, false
	}
	v, ok := ctx.Value(actorContextKey{}).(*ActorContext)
	if !ok || v == nil {
		return ActorContext{}, false
	}
	return *v, true
}

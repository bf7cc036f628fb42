package domain

import "context"

// Actor — аутентифицированный пользователь текущего запроса.
type Actor struct {
	ID        string
	Name      string
	Role      Role
	IP        string
	UserAgent string
}

type actorCtxKey struct{}

func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, a)
}

// ActorFromContext возвращает nil для анонимного запроса.
func ActorFromContext(ctx context.Context) *Actor {
	a, _ := ctx.Value(actorCtxKey{}).(*Actor)
	return a
}

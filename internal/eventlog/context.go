package eventlog

import "context"

type actorKey struct{}
type requestKey struct{}

// Actor is the user a mutation is performed for.
type Actor struct {
	ID   uint64
	Name string
}

// Request carries the contextual metadata of the call that caused a mutation.
type Request struct {
	IPAddress string
	URL       string
	UserAgent string
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored in ctx, or the zero (public) actor.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{Name: "public"}
}

func WithRequest(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

func RequestFrom(ctx context.Context) Request {
	if r, ok := ctx.Value(requestKey{}).(Request); ok {
		return r
	}
	return Request{}
}

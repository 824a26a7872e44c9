// Package auditcontext carries request metadata to the audit log.
package auditcontext

import "context"

type ctxKey struct{}

type Request struct {
	RequestID string
	IPAddress string
	UserAgent string
	ActorType string
	ActorID   string
}

func With(ctx context.Context, req Request) context.Context {
	return context.WithValue(ctx, ctxKey{}, req)
}

func From(ctx context.Context) (Request, bool) {
	if ctx == nil {
		return Request{}, false
	}
	req, ok := ctx.Value(ctxKey{}).(Request)
	return req, ok
}

// WithActor returns a copy of ctx whose request metadata names the actor.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	req, _ := From(ctx)
	req.ActorType = actorType
	req.ActorID = actorID
	return With(ctx, req)
}

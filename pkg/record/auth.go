package record

import "context"

// Authorizer decides whether the caller behind ctx may mutate records.
// Identity itself lives in the host application (session middleware, JWT,
// whatever); the store only asks the question. A nil Authorizer allows
// everything.
type Authorizer interface {
	Authorize(ctx context.Context) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context) error

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context) error { return f(ctx) }

package di

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5/middleware"
)

// ScopeKey is a type that can be used to store a Scope
// in the context.Context of an http.Request.
// By default, it is used in the C function and the RequestScopeMiddleware.
type ScopeKey string

// RequestScopeName is the name of the scopes opened by RequestScopeMiddleware.
type RequestScopeName struct {
	// RequestID is set by chi's middleware.RequestID if it is used before RequestScopeMiddleware.
	RequestID string
	Seq       uint64
}

func (n RequestScopeName) String() string {
	if n.RequestID == "" {
		return "request-" + strconv.FormatUint(n.Seq, 10)
	}
	return "request-" + n.RequestID
}

// RequestScopeMiddleware opens a new Scope for each request,
// as a child of the open Scope named parent, and adds it to the request context.
// The Scope is closed when the handler returns.
// It can be used with chi: r.Use(di.RequestScopeMiddleware(forest, "app")).
//
// It panics if the Scope can not be opened, so it should be used
// with another middleware (like middleware.Recoverer) to recover from the panic.
func RequestScopeMiddleware(forest *Forest, parent any, markers ...Marker) func(http.Handler) http.Handler {
	var seq atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := RequestScopeName{
				RequestID: middleware.GetReqID(r.Context()),
				Seq:       seq.Add(1),
			}

			s, err := forest.OpenChildScope(parent, name)
			if err != nil {
				panic(err)
			}
			defer func() {
				if err := forest.CloseScope(name); err != nil {
					forest.logger.Error("could not close request scope", "scope", name.String(), "error", err)
				}
			}()

			for _, m := range markers {
				s.BindScopeAnnotation(m)
			}

			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), s)))
		})
	}
}

// WithScope returns a copy of ctx containing the Scope.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ScopeKey("di"), s)
}

// ScopeFromContext retrieves the Scope stored by WithScope.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(ScopeKey("di")).(*Scope)
	return s, ok
}

// C retrieves a Scope from an interface.
// The function panics if the Scope can not be retrieved.
//
// The interface can be :
//   - a *Scope
//   - a context.Context containing a Scope for the ScopeKey("di") key
//   - an *http.Request whose context.Context contains a Scope
//
// The function can be changed to match the needs of your application.
var C = func(i any) *Scope {
	switch v := i.(type) {
	case *Scope:
		return v
	case *http.Request:
		if s, ok := ScopeFromContext(v.Context()); ok {
			return s
		}
		panic("could not get the scope from the given *http.Request")
	case context.Context:
		if s, ok := ScopeFromContext(v); ok {
			return s
		}
		panic("could not get the scope from the given context.Context")
	default:
		panic("could not get the scope with C()")
	}
}

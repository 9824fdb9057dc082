package httpx

import "net/http"

type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first argument is the outermost wrapper.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

package runtime

import "net/http"

// Router registers a handler for a method and path.
type Router interface {
	Handle(method, path string, handler http.Handler)
}

// MuxRouter implements Router on top of http.ServeMux method patterns.
// Unknown paths answer 404 and known paths with another method answer 405.
type MuxRouter struct {
	mux *http.ServeMux
}

func NewMuxRouter(mux *http.ServeMux) *MuxRouter {
	return &MuxRouter{mux: mux}
}

func (m *MuxRouter) Handle(method, path string, handler http.Handler) {
	m.mux.Handle(method+" "+path, handler)
}

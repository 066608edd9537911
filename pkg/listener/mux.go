package listener

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
)

type Mux struct {
	router   *mux.Router
	wrappers []func(http.Handler) http.Handler
	errs     *multierror.Error
}

func NewMux() *Mux {
	return &Mux{
		router: mux.NewRouter(),
		errs:   &multierror.Error{},
	}
}

// Register takes the constructor result as is so that construction errors
// surface from BuildServer.
func (m *Mux) Register(l Listener, err error) *Mux {
	if err != nil {
		m.errs = multierror.Append(m.errs, err)
		return m
	}

	err = l.RegisterRoutes(m.router)
	if err != nil {
		m.errs = multierror.Append(m.errs, fmt.Errorf("failed to register routes: %w", err))
	}

	return m
}

// Use wraps the whole router, so wrappers also see requests no route matched.
func (m *Mux) Use(wrappers ...func(http.Handler) http.Handler) *Mux {
	m.wrappers = append(m.wrappers, wrappers...)
	return m
}

func (m *Mux) Handler() http.Handler {
	var handler http.Handler = m.router

	for i := len(m.wrappers) - 1; i >= 0; i-- {
		handler = m.wrappers[i](handler)
	}

	return handler
}

func (m *Mux) BuildServer(server *http.Server) (*http.Server, error) {
	if err := m.errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	server.Handler = m.Handler()

	return server, nil
}

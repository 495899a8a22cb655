package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sarulabs/di/v3"
)

// requestMarker is accepted by the request scopes of the demo.
const requestMarker di.Marker = "Request"

type demoConfig struct {
	Greeting string
}

type demoSession struct {
	ID     int64
	Config *demoConfig
}

type demoHandler struct {
	Session *demoSession
	Config  *demoConfig
}

func (h *demoHandler) Greet() string {
	return fmt.Sprintf("%s from session %d", h.Config.Greeting, h.Session.ID)
}

// demoRegistry returns the factories of the demo graph:
// a config shared by the whole forest, a session per request scope,
// and a new handler each time one is requested.
func demoRegistry() *di.FactoryTable {
	table := di.NewFactoryTable()

	var sessions atomic.Int64

	di.RegisterFactory(table, func(r di.Resolver) (*demoConfig, error) {
		return &demoConfig{Greeting: "hello"}, nil
	}).AsSingleton()

	di.RegisterFactory(table, func(r di.Resolver) (*demoSession, error) {
		config, err := di.Get[*demoConfig](r)
		if err != nil {
			return nil, err
		}
		return &demoSession{ID: sessions.Add(1), Config: config}, nil
	}).InScope(requestMarker).AsSingleton()

	di.RegisterFactory(table, func(r di.Resolver) (*demoHandler, error) {
		session, err := di.Get[*demoSession](r)
		if err != nil {
			return nil, err
		}
		config, err := di.Get[*demoConfig](r)
		if err != nil {
			return nil, err
		}
		return &demoHandler{Session: session, Config: config}, nil
	})

	return table
}

// DemoCmd resolves the demo graph from concurrent request scopes.
type DemoCmd struct {
	Requests int `kong:"short='n',default='8',help='Number of concurrent request scopes'"`
}

// Run executes the demo command.
func (c *DemoCmd) Run(cli *CLI, out io.Writer) error {
	if c.Requests <= 0 {
		return errors.New("the number of requests must be positive")
	}

	forest, err := cli.forest(demoRegistry())
	if err != nil {
		return err
	}
	defer forest.Reset()

	app, err := forest.OpenScope("app")
	if err != nil {
		return err
	}

	results := make([]*demoHandler, c.Requests)
	g := errgroup.Group{}

	for i := 0; i < c.Requests; i++ {
		g.Go(func() error {
			name := fmt.Sprintf("request-%d", i)

			s, err := forest.OpenChildScope("app", name)
			if err != nil {
				return err
			}
			defer func() {
				if err := forest.CloseScope(name); err != nil {
					slog.Error("Could not close scope", "scope", name, "error", err)
				}
			}()

			s.BindScopeAnnotation(requestMarker)

			h1, err := di.Get[*demoHandler](s)
			if err != nil {
				return err
			}
			h2, err := di.Get[*demoHandler](s)
			if err != nil {
				return err
			}

			if h1 == h2 {
				return fmt.Errorf("%s: handlers should not be shared", name)
			}
			if h1.Session != h2.Session {
				return fmt.Errorf("%s: the session should be shared inside the scope", name)
			}

			slog.Debug("Request resolved", "scope", name, "session", h1.Session.ID)

			results[i] = h1

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	config := di.MustGet[*demoConfig](app)
	sessions := map[int64]struct{}{}

	for i, h := range results {
		if h.Config != config {
			return fmt.Errorf("request-%d: the config should be shared by the forest", i)
		}
		sessions[h.Session.ID] = struct{}{}
		fmt.Fprintf(out, "request-%d: %s\n", i, h.Greet())
	}

	fmt.Fprintf(out, "%d request scopes, %d sessions, 1 config\n", len(results), len(sessions))

	return nil
}

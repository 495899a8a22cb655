package di

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// barProvider builds a new testBar each time Get is called.
type barProvider struct{}

func (p *barProvider) Get() (any, error) {
	return &testBar{Name: "provided"}, nil
}

func TestProviderInstanceBinding(t *testing.T) {
	forest := newTestForest(ProductionMode, nil)
	app, _ := forest.OpenScope("app")

	var calls, singletonCalls atomic.Int64

	m := NewModule("providers")
	Bind[*testBar](m).ToProviderInstance(ProviderFunc(func() (any, error) {
		calls.Add(1)
		return &testBar{}, nil
	}))
	Bind[*testBar](m).Named("singleton").ToProviderInstance(ProviderFunc(func() (any, error) {
		singletonCalls.Add(1)
		return &testBar{}, nil
	})).ProvidesSingleton()
	Bind[*testBar](m).Named("failing").ToProviderInstance(ProviderFunc(func() (any, error) {
		return nil, errors.New("provider error")
	}))
	Bind[*testBar](m).Named("panicking").ToProviderInstance(ProviderFunc(func() (any, error) {
		panic("provider panic")
	}))
	require.Nil(t, app.InstallModules(m))

	require.NotSame(t, MustGet[*testBar](app), MustGet[*testBar](app))
	require.Equal(t, int64(2), calls.Load())

	require.Same(t, MustGet[*testBar](app, "singleton"), MustGet[*testBar](app, "singleton"))
	require.Equal(t, int64(1), singletonCalls.Load())

	_, err := Get[*testBar](app, "failing")
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "provider error")

	_, err = Get[*testBar](app, "panicking")
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "panicked")
}

func TestProviderClassBinding(t *testing.T) {
	var providers atomic.Int64

	forest := newTestForest(ProductionMode, func(table *FactoryTable) {
		RegisterFactory(table, func(r Resolver) (*barProvider, error) {
			providers.Add(1)
			return &barProvider{}, nil
		})
		RegisterFactory(table, func(r Resolver) (*testFoo, error) {
			return &testFoo{}, nil
		})
	})

	app, _ := forest.OpenScope("app")

	m := NewModule("providers")
	Bind[*testBar](m).ToProvider(TypeOf[*barProvider]())
	Bind[*testBar](m).Named("kept-provider").ToProvider(TypeOf[*barProvider]()).Singleton()
	Bind[*testBar](m).Named("singleton").ToProvider(TypeOf[*barProvider]()).ProvidesSingleton()
	Bind[*testBar](m).Named("not-a-provider").ToProvider(TypeOf[*testFoo]())
	require.Nil(t, app.InstallModules(m))

	// a new provider for each object
	bar1 := MustGet[*testBar](app)
	bar2 := MustGet[*testBar](app)
	require.Equal(t, "provided", bar1.Name)
	require.NotSame(t, bar1, bar2)
	require.Equal(t, int64(2), providers.Load())

	// one provider, a new object each time
	providers.Store(0)
	require.NotSame(t, MustGet[*testBar](app, "kept-provider"), MustGet[*testBar](app, "kept-provider"))
	require.Equal(t, int64(1), providers.Load())

	// one object
	providers.Store(0)
	require.Same(t, MustGet[*testBar](app, "singleton"), MustGet[*testBar](app, "singleton"))
	require.Equal(t, int64(1), providers.Load())

	_, err := Get[*testBar](app, "not-a-provider")
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "does not implement Provider")
}

func TestProvidingSingletonFactory(t *testing.T) {
	var providers atomic.Int64

	forest := newTestForest(ProductionMode, func(table *FactoryTable) {
		RegisterFactory(table, func(r Resolver) (*barProvider, error) {
			providers.Add(1)
			return &barProvider{}, nil
		}).AsProvidingSingleton()
	})

	app, _ := forest.OpenScope("app")
	child, _ := forest.OpenScopes("app", "child")

	m := NewModule("providers")
	Bind[*testBar](m).ToProvider(TypeOf[*barProvider]())
	require.Nil(t, app.InstallModules(m))

	require.Same(t, MustGet[*testBar](child), MustGet[*testBar](app))
	require.Equal(t, int64(1), providers.Load())
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func() (any, error) {
		return 1, nil
	})

	obj, err := p.Get()
	require.Nil(t, err)
	require.Equal(t, 1, obj)

	obj, err = callProvider(ProviderFunc(func() (any, error) {
		return nil, errors.New("error")
	}), KeyOf[int]())
	require.Nil(t, obj)
	require.Equal(t, "could not get `int` from its provider: error", err.Error())
}

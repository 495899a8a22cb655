package di

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstallModulesOverride(t *testing.T) {
	forest := newTestForest(ProductionMode, nil)
	app, _ := forest.OpenScope("app")

	first := &testBar{Name: "first"}
	closed := false

	m1 := NewModule("first")
	Bind[*testBar](m1).ToInstance(first).OnClose(func(obj any) error {
		closed = obj == first
		return nil
	})
	require.Nil(t, app.InstallModules(m1))
	require.Same(t, first, MustGet[*testBar](app))

	m2 := NewModule("second")
	Bind[*testBar](m2).ToInstance(&testBar{Name: "second"})
	require.Nil(t, app.InstallModules(m2))

	require.Equal(t, "second", MustGet[*testBar](app).Name)
	require.True(t, closed, "the replaced singleton should be closed")
}

func TestInstallModulesOverrideForbidden(t *testing.T) {
	config := ProductionConfiguration()
	config.OverridePolicy = OverrideForbidden

	forest := NewForest(config)
	app, _ := forest.OpenScope("app")

	m1 := NewModule("first")
	Bind[*testBar](m1).ToInstance(&testBar{Name: "first"})
	require.Nil(t, app.InstallModules(m1))

	m2 := NewModule("second")
	Bind[*testFoo](m2).ToInstance(&testFoo{})
	Bind[*testBar](m2).ToInstance(&testBar{Name: "second"})

	err := app.InstallModules(m2)
	require.ErrorIs(t, err, ErrDuplicateBinding)
	require.Equal(t, "first", MustGet[*testBar](app).Name)
	require.Equal(t, []Key{KeyOf[*testBar]()}, app.BoundKeys(), "nothing is installed when there is an error")

	// between modules of the same call
	m3 := NewModule("third")
	Bind[*testFoo](m3).ToInstance(&testFoo{})
	err = app.InstallModules(m3, m3)
	require.ErrorIs(t, err, ErrDuplicateBinding)

	// test modules can override
	require.Nil(t, app.InstallTestModules(m2))
	require.Equal(t, "second", MustGet[*testBar](app).Name)

	// a child scope can still override its parent
	child, _ := forest.OpenScopes("app", "child")
	require.Nil(t, child.InstallModules(m1))
	require.Equal(t, "first", MustGet[*testBar](child).Name)
}

func TestInstallInvalidModules(t *testing.T) {
	forest := newTestForest(ProductionMode, nil)
	app, _ := forest.OpenScope("app")

	tests := []struct {
		name string
		bind func(m *Module)
	}{
		{"nil key type", func(m *Module) { m.Bind(Key{}) }},
		{"class without target", func(m *Module) { Bind[greeter](m).To(nil) }},
		{"provider class without target", func(m *Module) { Bind[greeter](m).ToProvider(nil) }},
		{"nil provider", func(m *Module) { Bind[greeter](m).ToProviderInstance(nil) }},
		{"provides singleton without provider", func(m *Module) { Bind[greeter](m).ProvidesSingleton() }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := NewModule(test.name)
			test.bind(m)
			require.ErrorIs(t, app.InstallModules(m), ErrInvalidBinding)
		})
	}

	require.Len(t, app.BoundKeys(), 0)
	require.Nil(t, app.InstallModules(nil))
}

func TestInstallModulesInClosedScope(t *testing.T) {
	forest := newTestForest(ProductionMode, nil)
	app, _ := forest.OpenScope("app")
	require.Nil(t, forest.CloseScope("app"))

	m := NewModule("bar")
	Bind[*testBar](m).ToInstance(&testBar{})

	require.ErrorIs(t, app.InstallModules(m), ErrScopeClosed)
}

func TestInstallModulesResetsSlot(t *testing.T) {
	forest := newTestForest(ProductionMode, func(table *FactoryTable) {
		RegisterFactory(table, func(r Resolver) (*testBar, error) {
			return &testBar{Name: "factory"}, nil
		})
	})
	app, _ := forest.OpenScope("app")

	m1 := NewModule("first")
	Bind[*testBar](m1)
	require.Nil(t, app.InstallModules(m1))
	require.Equal(t, "factory", MustGet[*testBar](app).Name)

	m2 := NewModule("second")
	Bind[*testBar](m2).ToInstance(&testBar{Name: "instance"})
	require.Nil(t, app.InstallTestModules(m2))
	require.Equal(t, "instance", MustGet[*testBar](app).Name)
}

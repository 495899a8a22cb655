package di

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenScopes(t *testing.T) {
	forest := NewForest(ProductionConfiguration())

	b, err := forest.OpenScopes("a", "b")
	require.Nil(t, err)
	require.Equal(t, "b", b.Name())
	require.Equal(t, "a", b.Parent().Name())
	require.True(t, b.Parent().IsRoot())
	require.Equal(t, 2, forest.Len())

	c, err := forest.OpenScopes("a", "b", "c")
	require.Nil(t, err)
	require.Same(t, b, c.Parent(), "existing scopes are reused")
	require.Equal(t, 3, forest.Len())

	a, err := forest.OpenScope("a")
	require.Nil(t, err)
	require.Same(t, b.Parent(), a)

	again, err := forest.OpenScopes("a", "b")
	require.Nil(t, err)
	require.Same(t, b, again)

	require.True(t, forest.IsScopeOpen("c"))
	require.False(t, forest.IsScopeOpen("d"))

	s, ok := forest.Scope("c")
	require.True(t, ok)
	require.Same(t, c, s)

	_, ok = forest.Scope("d")
	require.False(t, ok)
}

func TestOpenScopesErrors(t *testing.T) {
	forest := NewForest(ProductionConfiguration())

	_, err := forest.OpenScopes("a", "c")
	require.Nil(t, err)
	_, err = forest.OpenScope("b")
	require.Nil(t, err)

	_, err = forest.OpenScopes("b", "c")
	require.ErrorIs(t, err, ErrParentMismatch)

	_, err = forest.OpenScopes("c")
	require.Nil(t, err, "opening an existing scope alone does not check its parent")

	_, err = forest.OpenScopes("x", "c")
	require.ErrorIs(t, err, ErrParentMismatch)
	require.False(t, forest.IsScopeOpen("x"), "a failure should not open part of the chain")

	_, err = forest.OpenScopes("a", "a")
	require.NotNil(t, err)

	_, err = forest.OpenScopes()
	require.NotNil(t, err)

	_, err = forest.OpenScopes("a", nil)
	require.NotNil(t, err)

	_, err = forest.OpenScopes("a", []string{"not", "comparable"})
	require.NotNil(t, err)

	require.Equal(t, 3, forest.Len())
}

func TestOpenChildScope(t *testing.T) {
	forest := NewForest(ProductionConfiguration())

	_, err := forest.OpenChildScope("app", "request")
	require.NotNil(t, err)
	require.False(t, forest.IsScopeOpen("app"))

	forest.OpenScope("app")

	request, err := forest.OpenChildScope("app", "request")
	require.Nil(t, err)
	require.Equal(t, "app", request.Parent().Name())
}

func TestPreventMultipleRoots(t *testing.T) {
	forest := NewForest(DevelopmentConfiguration())

	_, err := forest.OpenScope("a")
	require.Nil(t, err)

	_, err = forest.OpenScope("b")
	require.ErrorIs(t, err, ErrMultipleRootScopes)

	_, err = forest.OpenScope("a")
	require.Nil(t, err)

	_, err = forest.OpenScopes("a", "b")
	require.Nil(t, err)

	require.Nil(t, forest.CloseScope("a"))

	_, err = forest.OpenScope("b")
	require.Nil(t, err, "a new root can be opened once the previous one is closed")
}

func TestOpenRootScope(t *testing.T) {
	forest := NewForest(ProductionConfiguration())

	calls := 0
	configure := func(s *Scope) error {
		calls++
		m := NewModule("bar")
		Bind[*testBar](m).ToInstance(&testBar{Name: "configured"})
		return s.InstallModules(m)
	}

	app, err := forest.OpenRootScope("app", configure)
	require.Nil(t, err)
	require.Equal(t, "configured", MustGet[*testBar](app).Name)

	again, err := forest.OpenRootScope("app", configure)
	require.Nil(t, err)
	require.Same(t, app, again)
	require.Equal(t, 1, calls, "configure is only called when the scope is created")

	forest.OpenScopes("app", "child")

	_, err = forest.OpenRootScope("child", configure)
	require.ErrorIs(t, err, ErrParentMismatch)

	_, err = forest.OpenRootScope("failing", func(s *Scope) error {
		return errors.New("configure error")
	})
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "configure error")
	require.False(t, forest.IsScopeOpen("failing"))

	plain, err := forest.OpenRootScope("plain", nil)
	require.Nil(t, err)
	require.True(t, plain.IsRoot())
}

func TestCloseScope(t *testing.T) {
	forest := NewForest(ProductionConfiguration())

	forest.OpenScopes("app", "a", "b")
	c, _ := forest.OpenScopes("app", "c")
	a, _ := forest.Scope("a")
	b, _ := forest.Scope("b")

	require.Nil(t, forest.CloseScope("a"))

	require.True(t, a.IsClosed())
	require.True(t, b.IsClosed(), "the descendants are closed too")
	require.False(t, c.IsClosed())
	require.False(t, forest.IsScopeOpen("a"))
	require.False(t, forest.IsScopeOpen("b"))
	require.True(t, forest.IsScopeOpen("app"))
	require.Equal(t, "app [Singleton]\n└── c\n", forest.String())

	// idempotent
	require.Nil(t, forest.CloseScope("a"))
	require.Nil(t, forest.CloseScope("unknown"))
	require.Equal(t, 2, forest.Len())

	// a closed name can be opened again, as a new scope
	newA, err := forest.OpenScopes("app", "a")
	require.Nil(t, err)
	require.NotSame(t, a, newA)
	require.False(t, newA.IsClosed())
}

func TestCloseScopeOrder(t *testing.T) {
	forest := NewForest(ProductionConfiguration())

	closed := []string{}

	bindIn := func(s *Scope, names ...string) {
		m := NewModule(formatName(s.Name()))
		for _, name := range names {
			Bind[*testBar](m).Named(name).ToInstance(&testBar{Name: name}).OnClose(func(obj any) error {
				closed = append(closed, obj.(*testBar).Name)
				return nil
			})
		}
		require.Nil(t, s.InstallModules(m))
	}

	app, _ := forest.OpenScope("app")
	child, _ := forest.OpenScopes("app", "child")
	grandChild, _ := forest.OpenScopes("app", "child", "grandchild")

	bindIn(app, "app-1", "app-2")
	bindIn(child, "child")
	bindIn(grandChild, "grandchild")

	MustGet[*testBar](app, "app-1")
	MustGet[*testBar](grandChild, "app-2")
	MustGet[*testBar](grandChild, "child")
	MustGet[*testBar](grandChild, "grandchild")

	require.Nil(t, forest.CloseScope("app"))

	require.Equal(t, []string{"grandchild", "child", "app-2", "app-1"}, closed)
	require.Equal(t, 0, forest.Len())
}

func TestCloseScopeErrors(t *testing.T) {
	forest := NewForest(ProductionConfiguration())
	app, _ := forest.OpenScope("app")

	errA := errors.New("close error a")
	errB := errors.New("close error b")
	closedC := false

	m := NewModule("failing")
	Bind[*testBar](m).Named("a").ToInstance(&testBar{}).OnClose(func(obj any) error {
		return errA
	})
	Bind[*testBar](m).Named("b").ToInstance(&testBar{}).OnClose(func(obj any) error {
		return errB
	})
	Bind[*testBar](m).Named("panic").ToInstance(&testBar{}).OnClose(func(obj any) error {
		panic("close panic")
	})
	Bind[*testBar](m).Named("c").ToInstance(&testBar{}).OnClose(func(obj any) error {
		closedC = true
		return nil
	})
	Bind[*testBar](m).Named("unused").ToInstance(&testBar{}).OnClose(func(obj any) error {
		return errors.New("should not be called")
	})
	require.Nil(t, app.InstallModules(m))

	for _, name := range []string{"c", "panic", "b", "a"} {
		MustGet[*testBar](app, name)
	}

	err := forest.CloseScope("app")
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	require.Contains(t, err.Error(), "panicked")
	require.NotContains(t, err.Error(), "should not be called")
	require.True(t, closedC, "an error should not prevent the other objects from being closed")
}

func TestReset(t *testing.T) {
	forest := NewForest(ProductionConfiguration())

	a, _ := forest.OpenScopes("a", "a1")
	b, _ := forest.OpenScopes("b", "b1")

	require.Len(t, forest.Roots(), 2)
	require.Equal(t, "a", forest.Roots()[0].Name())
	require.Equal(t, "b", forest.Roots()[1].Name())

	require.Nil(t, forest.Reset())

	require.Equal(t, 0, forest.Len())
	require.Len(t, forest.Roots(), 0)
	require.True(t, a.IsClosed())
	require.True(t, b.IsClosed())
	require.Equal(t, "", forest.String())
}

func TestForestString(t *testing.T) {
	forest := NewForest(ProductionConfiguration())

	app, _ := forest.OpenScope("app")
	forest.OpenScopes("app", "a")
	b, _ := forest.OpenScopes("app", "a", "b")
	forest.OpenScopes("app", "c")
	forest.OpenScope("other")

	m := NewModule("bar")
	Bind[*testBar](m).ToInstance(&testBar{})
	require.Nil(t, app.InstallModules(m))

	b.BindScopeAnnotation("Request")

	expected := "app [Singleton] {*di.testBar}\n" +
		"├── a\n" +
		"│   └── b [Request]\n" +
		"└── c\n" +
		"other [Singleton]\n"

	require.Equal(t, expected, forest.String())

	a, _ := forest.Scope("a")
	require.Equal(t, "a\n└── b [Request]\n", a.String())
}

func TestForestConfiguration(t *testing.T) {
	table := NewFactoryTable()

	config := DevelopmentConfiguration(table)
	config.OverridePolicy = OverrideForbidden

	forest := NewForest(config)

	require.Equal(t, config, forest.Configuration())
	require.Equal(t, "mode=development roots=single override=forbid registries=1", config.String())
	require.Equal(t, "mode=production roots=multiple override=allow registries=0", ProductionConfiguration().String())

	require.IsType(t, developmentChecker{}, config.checker())
	require.IsType(t, productionChecker{}, Configuration{}.checker())
	require.IsType(t, MuteLogger{}, Configuration{}.logger())
}

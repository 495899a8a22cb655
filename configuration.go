package di

import "fmt"

// RuntimeMode selects the runtime checks of a Forest.
type RuntimeMode int

const (
	// ProductionMode disables the cycle and illegal binding checks.
	// A cycle in the definitions then leads to an infinite recursion
	// or to a goroutine waiting for itself.
	ProductionMode RuntimeMode = iota
	// DevelopmentMode enables the cycle and illegal binding checks.
	DevelopmentMode
)

func (m RuntimeMode) String() string {
	if m == DevelopmentMode {
		return "development"
	}
	return "production"
}

// RootPolicy defines if a Forest can contain more than one tree.
type RootPolicy int

const (
	// AllowMultipleRoots lets a Forest contain several root scopes.
	AllowMultipleRoots RootPolicy = iota
	// PreventMultipleRoots makes the Forest reject a second root scope.
	PreventMultipleRoots
)

func (p RootPolicy) String() string {
	if p == PreventMultipleRoots {
		return "single"
	}
	return "multiple"
}

// OverridePolicy defines what happens when a Key is bound twice in the same Scope.
type OverridePolicy int

const (
	// OverrideAllowed keeps the last installed Binding.
	OverrideAllowed OverridePolicy = iota
	// OverrideForbidden makes InstallModules fail with ErrDuplicateBinding.
	// InstallTestModules can still override bindings.
	OverrideForbidden
)

func (p OverridePolicy) String() string {
	if p == OverrideForbidden {
		return "forbid"
	}
	return "allow"
}

// Configuration contains the settings of a Forest.
// The zero value is a valid production configuration without any Registry.
type Configuration struct {
	Mode           RuntimeMode
	RootPolicy     RootPolicy
	OverridePolicy OverridePolicy

	// Registries are queried in order to find the Factory of a type
	// that is not bound in any scope, and to find MemberInjectors.
	Registries []Registry

	// Logger defaults to MuteLogger.
	Logger Logger
}

// ProductionConfiguration returns a Configuration without runtime checks.
func ProductionConfiguration(registries ...Registry) Configuration {
	return Configuration{
		Mode:       ProductionMode,
		Registries: registries,
	}
}

// DevelopmentConfiguration returns a Configuration with the cycle
// and illegal binding checks, and a single root scope.
func DevelopmentConfiguration(registries ...Registry) Configuration {
	return Configuration{
		Mode:       DevelopmentMode,
		RootPolicy: PreventMultipleRoots,
		Registries: registries,
	}
}

func (c Configuration) String() string {
	return fmt.Sprintf(
		"mode=%s roots=%s override=%s registries=%d",
		c.Mode, c.RootPolicy, c.OverridePolicy, len(c.Registries),
	)
}

func (c Configuration) checker() checker {
	if c.Mode == DevelopmentMode {
		return developmentChecker{}
	}
	return productionChecker{}
}

func (c Configuration) logger() Logger {
	if c.Logger == nil {
		return MuteLogger{}
	}
	return c.Logger
}

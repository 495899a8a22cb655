package di

// Module is a bundle of bindings that can be installed in a Scope.
// The Module should be created with NewModule.
// Then you can add bindings with the Bind method (or the Bind function),
// and install it with Scope.InstallModules.
type Module struct {
	name     string
	bindings []*Binding
}

// NewModule creates an empty Module.
// The name is only used in error messages and logs.
func NewModule(name string) *Module {
	return &Module{name: name}
}

// Name returns the Module name.
func (m *Module) Name() string {
	return m.name
}

// Bind adds a Simple Binding for the given Key and returns it
// so it can be configured.
func (m *Module) Bind(key Key) *Binding {
	b := &Binding{key: key, mode: Simple}
	m.bindings = append(m.bindings, b)
	return b
}

// Bindings returns the bindings of the Module.
// When two bindings share the same Key, only the last one is returned.
func (m *Module) Bindings() []*Binding {
	index := make(map[Key]int, len(m.bindings))
	res := make([]*Binding, 0, len(m.bindings))

	for _, b := range m.bindings {
		if i, ok := index[b.key]; ok {
			res[i] = b
			continue
		}
		index[b.key] = len(res)
		res = append(res, b)
	}

	return res
}

// Bind is a shortcut for m.Bind(KeyOf[T]()).
func Bind[T any](m *Module) *Binding {
	return m.Bind(KeyOf[T]())
}

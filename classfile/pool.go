package classfile

// ClassPool is an ordered set of classes indexed by name.
type ClassPool struct {
	classes map[string]*Class
	order   []string
}

// NewClassPool returns a pool holding classes.
func NewClassPool(classes ...*Class) *ClassPool {
	p := &ClassPool{classes: map[string]*Class{}}
	for _, c := range classes {
		p.Add(c)
	}
	return p
}

// Add adds c, replacing any class with the same name in place.
func (p *ClassPool) Add(c *Class) {
	if _, ok := p.classes[c.Name]; !ok {
		p.order = append(p.order, c.Name)
	}
	p.classes[c.Name] = c
}

// Remove removes the class called name.
func (p *ClassPool) Remove(name string) {
	if _, ok := p.classes[name]; !ok {
		return
	}
	delete(p.classes, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Get returns the class called name, or nil.
func (p *ClassPool) Get(name string) *Class {
	if p == nil {
		return nil
	}
	return p.classes[name]
}

// Contains reports whether the pool holds a class called name.
func (p *ClassPool) Contains(name string) bool {
	return p.Get(name) != nil
}

// Len returns the number of classes.
func (p *ClassPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.order)
}

// Classes returns the classes in insertion order.
func (p *ClassPool) Classes() []*Class {
	if p == nil {
		return nil
	}
	res := make([]*Class, len(p.order))
	for i, n := range p.order {
		res[i] = p.classes[n]
	}
	return res
}

// Pools pairs the classes being processed with the library and platform
// classes they run against.
type Pools struct {
	Program *ClassPool
	Library *ClassPool
}

// Lookup finds name in the program pool, then the library pool.
func (p Pools) Lookup(name string) (*Class, bool) {
	if c := p.Program.Get(name); c != nil {
		return c, true
	}
	if c := p.Library.Get(name); c != nil {
		return c, true
	}
	return nil, false
}

// IsProgramClass reports whether name is a program class.
func (p Pools) IsProgramClass(name string) bool {
	return p.Program.Contains(name)
}

// Implements reports whether the class called name is, extends or
// implements iface, following superclasses and interfaces through both
// pools. Classes missing from the pools end the search.
func (p Pools) Implements(name, iface string) bool {
	seen := map[string]bool{}
	var walk func(string) bool
	walk = func(n string) bool {
		if n == "" || seen[n] {
			return false
		}
		seen[n] = true
		if n == iface {
			return true
		}
		c, ok := p.Lookup(n)
		if !ok {
			return false
		}
		for _, i := range c.Interfaces {
			if walk(i) {
				return true
			}
		}
		return walk(c.Super)
	}
	return walk(name)
}

// HasMethod reports whether the class called class declares the method.
func (p Pools) HasMethod(class, name, desc string) bool {
	c, ok := p.Lookup(class)
	return ok && c.Method(name, desc) != nil
}

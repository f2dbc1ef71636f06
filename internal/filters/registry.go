package filters

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a decode stage reading from src. A factory that fails must
// not close src; the chain builder does that.
type Factory func(src Source, params Params, env *Env) (Source, error)

// Registry maps filter names, including their abbreviations, to factories.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	canonical map[string]string // alias or name -> full name
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		canonical: make(map[string]string),
	}
}

// Register adds factory under name and every alias. It returns an error
// wrapping ErrDuplicateFilter if any of the names is already taken, in which
// case nothing is registered.
func (r *Registry) Register(name string, factory Factory, aliases ...string) error {
	if name == "" || factory == nil {
		return fmt.Errorf("filters: register %q: empty name or nil factory", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{name}, aliases...)
	for _, k := range keys {
		if _, ok := r.factories[k]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFilter, k)
		}
	}
	for _, k := range keys {
		r.factories[k] = factory
		r.canonical[k] = name
	}
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// registrations made while a program is being set up.
func (r *Registry) MustRegister(name string, factory Factory, aliases ...string) {
	if err := r.Register(name, factory, aliases...); err != nil {
		panic(err)
	}
}

// Lookup returns the factory for name and the filter's full name.
func (r *Registry) Lookup(name string) (Factory, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, r.canonical[name], ok
}

// Names returns the full names of all registered filters, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var names []string
	for _, full := range r.canonical {
		if !seen[full] {
			seen[full] = true
			names = append(names, full)
		}
	}
	sort.Strings(names)
	return names
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry holding the built-in filters. It is
// built on first use.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewBuiltinRegistry()
	})
	return defaultRegistry
}

// NewBuiltinRegistry returns a new registry holding the built-in filters,
// ready for custom filters to be added alongside them.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}

func registerBuiltins(r *Registry) {
	r.MustRegister("ASCIIHexDecode", func(src Source, _ Params, env *Env) (Source, error) {
		return NewASCIIHexDecoder(src, env.bufferSize()), nil
	}, "AHx")
	r.MustRegister("ASCII85Decode", func(src Source, _ Params, env *Env) (Source, error) {
		return NewASCII85Decoder(src, env.bufferSize()), nil
	}, "A85")
	r.MustRegister("FlateDecode", NewFlateDecoder, "Fl")
	r.MustRegister("LZWDecode", NewLZWDecoder, "LZW")
	r.MustRegister("RunLengthDecode", func(src Source, _ Params, env *Env) (Source, error) {
		return NewRunLengthDecoder(src, env.bufferSize()), nil
	}, "RL")
	r.MustRegister("CCITTFaxDecode", func(src Source, params Params, env *Env) (Source, error) {
		return NewCCITTFaxDecoder(src, params, env.bufferSize())
	}, "CCF")
	r.MustRegister("Crypt", newCryptStage)

	// Image codecs are left encoded for image consumers.
	r.MustRegister("DCTDecode", passThrough, "DCT")
	r.MustRegister("JPXDecode", passThrough)
	r.MustRegister("JBIG2Decode", passThrough)
}

// passThrough is the identity stage. It still buffers its input so every
// stage in a chain has the same read behaviour.
func passThrough(src Source, _ Params, env *Env) (Source, error) {
	return NewBuffer(src, env.bufferSize()), nil
}

// newCryptStage decrypts with the crypt filter named in params. Without a
// security handler, or for the Identity filter, data passes through.
func newCryptStage(src Source, params Params, env *Env) (Source, error) {
	name := getNameParam(params, "Name", IdentityCryptFilter)
	if env == nil || env.Security == nil {
		if name != IdentityCryptFilter {
			env.Warnf("Crypt", -1, "no security handler for crypt filter %s, data left encrypted", name)
		}
		return passThrough(src, params, env)
	}
	return env.Security.DecryptStream(src, name, env)
}

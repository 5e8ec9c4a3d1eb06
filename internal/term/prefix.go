package term

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Standard namespaces registered by NewPrefixes.
const (
	NamespaceOWL   = "http://www.w3.org/2002/07/owl#"
	NamespaceRDF   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS  = "http://www.w3.org/2000/01/rdf-schema#"
	NamespaceXSD   = XSD
	NamespaceSWRL  = "http://www.w3.org/2003/11/swrl#"
	NamespaceSWRLB = "http://www.w3.org/2003/11/swrlb#"
	NamespaceSWRLX = "http://swrl.stanford.edu/ontologies/built-ins/3.3/swrlx.owl#"
	NamespaceSQWRL = "http://sqwrl.stanford.edu/ontologies/built-ins/3.4/sqwrl.owl#"
)

// ErrNoDefaultPrefix is returned when an unprefixed name is expanded and no
// default namespace has been configured.
var ErrNoDefaultPrefix = errors.New("no default prefix configured")

// Prefixes maps prefix labels to namespaces. The default namespace is an
// explicit state: it is either configured or absent, never a placeholder.
type Prefixes struct {
	namespaces map[string]string
	defaultNS  string
	hasDefault bool
	libraries  map[string]bool
}

// NewPrefixes returns the standard owl/rdf/rdfs/xsd/swrl prefixes with the
// swrlb, swrlx and sqwrl built-in libraries marked. No default is set.
func NewPrefixes() *Prefixes {
	p := &Prefixes{
		namespaces: map[string]string{
			"owl":   NamespaceOWL,
			"rdf":   NamespaceRDF,
			"rdfs":  NamespaceRDFS,
			"xsd":   NamespaceXSD,
			"swrl":  NamespaceSWRL,
			"swrlb": NamespaceSWRLB,
			"swrlx": NamespaceSWRLX,
			"sqwrl": NamespaceSQWRL,
		},
		libraries: map[string]bool{"swrlb": true, "swrlx": true, "sqwrl": true},
	}
	return p
}

// Set registers prefix for namespace. The empty prefix sets the default.
func (p *Prefixes) Set(prefix, namespace string) {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		p.SetDefault(namespace)
		return
	}
	p.namespaces[prefix] = namespace
}

// SetDefault configures the namespace used for unprefixed names.
func (p *Prefixes) SetDefault(namespace string) {
	p.defaultNS = namespace
	p.hasDefault = true
}

// ClearDefault removes the default namespace.
func (p *Prefixes) ClearDefault() {
	p.defaultNS = ""
	p.hasDefault = false
}

// Default returns the default namespace, if configured.
func (p *Prefixes) Default() (string, bool) { return p.defaultNS, p.hasDefault }

// HasDefault reports whether a default namespace is configured.
func (p *Prefixes) HasDefault() bool { return p.hasDefault }

// Namespace returns the namespace registered for prefix.
func (p *Prefixes) Namespace(prefix string) (string, bool) {
	ns, ok := p.namespaces[prefix]
	return ns, ok
}

// MarkLibrary flags prefix as naming a built-in library, so atoms using it
// are parsed as built-in atoms.
func (p *Prefixes) MarkLibrary(prefix string) {
	p.libraries[strings.TrimSuffix(prefix, ":")] = true
}

// IsLibrary reports whether prefix names a built-in library.
func (p *Prefixes) IsLibrary(prefix string) bool { return p.libraries[prefix] }

// Split separates a prefixed name into prefix and local part. Names without
// a colon have an empty prefix and ok == false.
func Split(name string) (prefix, local string, ok bool) {
	i := strings.Index(name, ":")
	if i < 0 {
		return "", name, false
	}
	return name[:i], name[i+1:], true
}

// Expand turns a prefixed name, an unprefixed name, or a bracketed IRI into
// a full IRI.
func (p *Prefixes) Expand(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty name")
	}
	if strings.HasPrefix(name, "<") && strings.HasSuffix(name, ">") {
		return name[1 : len(name)-1], nil
	}
	if strings.Contains(name, "://") {
		return name, nil
	}
	prefix, local, ok := Split(name)
	if !ok || prefix == "" {
		if !p.hasDefault {
			return "", fmt.Errorf("expand %q: %w", name, ErrNoDefaultPrefix)
		}
		return p.defaultNS + local, nil
	}
	ns, found := p.namespaces[prefix]
	if !found {
		return "", fmt.Errorf("expand %q: unknown prefix %q", name, prefix)
	}
	return ns + local, nil
}

// ShortForm renders iri with the longest matching namespace. IRIs in the
// default namespace render unprefixed; unmatched IRIs render bracketed.
func (p *Prefixes) ShortForm(iri string) string {
	if p.hasDefault && strings.HasPrefix(iri, p.defaultNS) && len(iri) > len(p.defaultNS) {
		return iri[len(p.defaultNS):]
	}
	best, bestNS := "", ""
	for _, prefix := range p.sortedPrefixes() {
		ns := p.namespaces[prefix]
		if strings.HasPrefix(iri, ns) && len(ns) > len(bestNS) && len(iri) > len(ns) {
			best, bestNS = prefix, ns
		}
	}
	if bestNS != "" {
		return best + ":" + iri[len(bestNS):]
	}
	return "<" + iri + ">"
}

// Clone returns an independent copy.
func (p *Prefixes) Clone() *Prefixes {
	c := &Prefixes{
		namespaces: make(map[string]string, len(p.namespaces)),
		defaultNS:  p.defaultNS,
		hasDefault: p.hasDefault,
		libraries:  make(map[string]bool, len(p.libraries)),
	}
	for k, v := range p.namespaces {
		c.namespaces[k] = v
	}
	for k, v := range p.libraries {
		c.libraries[k] = v
	}
	return c
}

func (p *Prefixes) sortedPrefixes() []string {
	out := make([]string, 0, len(p.namespaces))
	for k := range p.namespaces {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsLibraryIRI reports whether iri falls in the namespace of a built-in
// library prefix.
func (p *Prefixes) IsLibraryIRI(iri string) bool {
	for prefix := range p.libraries {
		if ns, ok := p.namespaces[prefix]; ok && strings.HasPrefix(iri, ns) {
			return true
		}
	}
	return false
}

package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/berfenger/kwlsim/internal/core/domain"
	"github.com/berfenger/kwlsim/pkg/easycontrols"
)

// Catalog is both the command table (variable id -> name) and the property
// registry (name -> descriptor). It is immutable once built.
//
// List properties carry the descriptor of one element and have no variable id,
// so they are reachable through the registry but never through Resolve.
type Catalog struct {
	names       map[string]string
	descriptors map[string]domain.PropertyDescriptor
	folded      map[string]string
	ordered     []domain.PropertyDescriptor
	lists       []domain.PropertyDescriptor
}

func New(table []domain.PropertyDescriptor, lists ...domain.PropertyDescriptor) (*Catalog, error) {
	c := &Catalog{
		names:       make(map[string]string, len(table)),
		descriptors: make(map[string]domain.PropertyDescriptor, len(table)+len(lists)),
		folded:      make(map[string]string, len(table)+len(lists)),
	}
	var errs []error
	for _, d := range lists {
		if err := validateElement(d); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, ok := c.descriptors[d.Name]; ok {
			errs = append(errs, fmt.Errorf("property %s declared twice", d.Name))
			continue
		}
		c.descriptors[d.Name] = d
		c.folded[strings.ToLower(d.Name)] = d.Name
		c.lists = append(c.lists, d)
	}
	for _, d := range table {
		if err := validate(d); err != nil {
			errs = append(errs, err)
			continue
		}
		if other, ok := c.names[d.VariableID]; ok {
			errs = append(errs, fmt.Errorf("variable v%s mapped to both %s and %s", d.VariableID, other, d.Name))
			continue
		}
		if _, ok := c.descriptors[d.Name]; ok {
			errs = append(errs, fmt.Errorf("property %s declared twice", d.Name))
			continue
		}
		c.names[d.VariableID] = d.Name
		c.descriptors[d.Name] = d
		c.folded[strings.ToLower(d.Name)] = d.Name
		c.ordered = append(c.ordered, d)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	sort.Slice(c.ordered, func(i, j int) bool {
		return c.ordered[i].VariableID < c.ordered[j].VariableID
	})
	return c, nil
}

func validate(d domain.PropertyDescriptor) error {
	if !easycontrols.IsVariableID(d.VariableID) {
		return fmt.Errorf("property %s: variable id %q is not 5 digits", d.Name, d.VariableID)
	}
	return validateElement(d)
}

func validateElement(d domain.PropertyDescriptor) error {
	switch {
	case d.Name == "" || strings.ContainsAny(d.Name, ".[]"):
		return fmt.Errorf("variable v%s: invalid name %q", d.VariableID, d.Name)
	case d.Size <= 0 || d.Count <= 0:
		return fmt.Errorf("property %s: size and count must be positive", d.Name)
	case !d.Access.Readable() && !d.Access.Writable():
		return fmt.Errorf("property %s: missing access mode", d.Name)
	case d.Type == domain.TypeEnum && len(d.Format.Members) == 0:
		return fmt.Errorf("property %s: enum without members", d.Name)
	}
	return nil
}

// Resolve maps a 5 digit variable id onto its property name.
func (c *Catalog) Resolve(variableID string) (string, bool) {
	name, ok := c.names[variableID]
	return name, ok
}

// IsProperty accepts flat names and dotted or indexed paths rooted at a known property.
func (c *Catalog) IsProperty(name string) bool {
	_, ok := c.descriptors[domain.TopLevelName(name)]
	return ok
}

func (c *Catalog) IsReadable(name string) bool {
	d, ok := c.descriptors[domain.TopLevelName(name)]
	return ok && d.Access.Readable()
}

func (c *Catalog) IsWritable(name string) bool {
	d, ok := c.descriptors[domain.TopLevelName(name)]
	return ok && d.Access.Writable()
}

func (c *Catalog) Descriptor(name string) (domain.PropertyDescriptor, bool) {
	d, ok := c.descriptors[domain.TopLevelName(name)]
	return d, ok
}

// CanonicalName resolves a case-insensitive name (as produced by config loaders
// that fold keys) onto the declared property name.
func (c *Catalog) CanonicalName(name string) (string, bool) {
	if _, ok := c.descriptors[name]; ok {
		return name, true
	}
	n, ok := c.folded[strings.ToLower(name)]
	return n, ok
}

// Lookup accepts either a property name or a variable id ("00101" or "v00101").
func (c *Catalog) Lookup(nameOrID string) (domain.PropertyDescriptor, bool) {
	id := strings.TrimPrefix(nameOrID, "v")
	if name, ok := c.Resolve(id); ok {
		return c.descriptors[name], true
	}
	if name, ok := c.CanonicalName(nameOrID); ok {
		return c.descriptors[name], true
	}
	return domain.PropertyDescriptor{}, false
}

// IsList reports whether name is a list property addressed by index.
func (c *Catalog) IsList(name string) bool {
	d, ok := c.descriptors[domain.TopLevelName(name)]
	return ok && d.VariableID == ""
}

// Lists returns the element descriptors of every list property.
func (c *Catalog) Lists() []domain.PropertyDescriptor {
	out := make([]domain.PropertyDescriptor, len(c.lists))
	copy(out, c.lists)
	return out
}

// Descriptors returns every variable descriptor ordered by variable id.
func (c *Catalog) Descriptors() []domain.PropertyDescriptor {
	out := make([]domain.PropertyDescriptor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/berfenger/kwlsim/internal/core/domain"
	"github.com/berfenger/kwlsim/internal/core/port"
	"go.uber.org/zap"
)

const LIST_SEPARATOR = ","

type PropertyValue struct {
	Name       string `json:"name"`
	VariableID string `json:"variable_id,omitempty"`
	Type       string `json:"type"`
	Access     string `json:"access"`
	Unit       string `json:"unit,omitempty"`
	Value      string `json:"value,omitempty"`
}

func (p PropertyValue) Readable() bool {
	return p.Access == domain.ReadOnly.String() || p.Access == domain.ReadWrite.String()
}

// PropertyService reads and writes properties as ASCII values, enforcing
// access modes. It works on the store directly, independent of the register bridge.
type PropertyService struct {
	catalog port.PropertyCatalog
	store   port.ObservableStore
	codec   port.TypeCodec
	logger  *zap.Logger
}

func NewPropertyService(catalog port.PropertyCatalog, store port.ObservableStore, codec port.TypeCodec, logger *zap.Logger) *PropertyService {
	return &PropertyService{
		catalog: catalog,
		store:   store,
		codec:   codec,
		logger:  logger,
	}
}

func (s *PropertyService) descriptor(name string) (domain.PropertyDescriptor, error) {
	canonical, ok := s.catalog.CanonicalName(name)
	if !ok {
		return domain.PropertyDescriptor{}, fmt.Errorf("%w: %s", domain.ErrUnknownProperty, name)
	}
	d, _ := s.catalog.Descriptor(canonical)
	return d, nil
}

func (s *PropertyService) Read(name string) (string, error) {
	d, err := s.descriptor(name)
	if err != nil {
		return "", err
	}
	if !d.Access.Readable() {
		return "", fmt.Errorf("%w: %s", domain.ErrNotReadable, d.Name)
	}
	if s.catalog.IsList(d.Name) {
		return s.readList(d)
	}
	value, err := s.store.Get(d.Name)
	if err != nil {
		return "", err
	}
	return s.codec.Encode(d, value)
}

func (s *PropertyService) Write(name string, ascii string) error {
	d, err := s.descriptor(name)
	if err != nil {
		return err
	}
	if !d.Access.Writable() {
		return fmt.Errorf("%w: %s", domain.ErrNotWritable, d.Name)
	}
	if s.catalog.IsList(d.Name) {
		return s.writeList(d, ascii)
	}
	return s.set(d, ascii)
}

func (s *PropertyService) ReadIndex(name string, i int) (string, error) {
	d, err := s.list(name)
	if err != nil {
		return "", err
	}
	if !d.Access.Readable() {
		return "", fmt.Errorf("%w: %s", domain.ErrNotReadable, d.Name)
	}
	value, err := s.store.GetIndex(d.Name, i)
	if err != nil {
		return "", err
	}
	return s.codec.Encode(d, value)
}

func (s *PropertyService) WriteIndex(name string, i int, ascii string) error {
	d, err := s.list(name)
	if err != nil {
		return err
	}
	if !d.Access.Writable() {
		return fmt.Errorf("%w: %s", domain.ErrNotWritable, d.Name)
	}
	value, err := s.codec.Decode(d, ascii)
	if err != nil {
		return err
	}
	return s.store.SetIndex(d.Name, i, value)
}

// Properties lists every property with its current value when readable.
func (s *PropertyService) Properties() []PropertyValue {
	ds := append(s.catalog.Descriptors(), s.catalog.Lists()...)
	out := make([]PropertyValue, 0, len(ds))
	for _, d := range ds {
		p := PropertyValue{
			Name:       d.Name,
			VariableID: d.VariableID,
			Type:       d.Type.String(),
			Access:     d.Access.String(),
			Unit:       d.Unit,
		}
		if d.Access.Readable() {
			value, err := s.Read(d.Name)
			if err != nil {
				s.logger.Warn("property@list: cannot encode value", zap.String("property", d.Name), zap.Error(err))
			}
			p.Value = value
		}
		out = append(out, p)
	}
	return out
}

// ApplyDefaults sets initial values from configuration. Access modes are not
// enforced, so read-only properties can be seeded too. List values are
// comma separated.
func (s *PropertyService) ApplyDefaults(defaults map[string]string) error {
	var errs []error
	for name, ascii := range defaults {
		d, err := s.descriptor(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if s.catalog.IsList(d.Name) {
			err = s.writeList(d, ascii)
		} else {
			err = s.set(d, ascii)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("default for %s: %w", d.Name, err))
			continue
		}
		s.logger.Debug("property@defaults: applied initial value", zap.String("property", d.Name), zap.String("value", ascii))
	}
	return errors.Join(errs...)
}

// Watch calls fn with the encoded value of every readable property that changes.
func (s *PropertyService) Watch(fn func(d domain.PropertyDescriptor, ascii string)) {
	s.store.OnChange(func(name string, value any) {
		d, ok := s.catalog.Descriptor(name)
		if !ok || !d.Access.Readable() {
			return
		}
		var ascii string
		var err error
		if values, isList := value.([]int64); isList {
			ascii, err = s.encodeList(d, values)
		} else {
			ascii, err = s.codec.Encode(d, value)
		}
		if err != nil {
			s.logger.Warn("property@watch: cannot encode value", zap.String("property", name), zap.Error(err))
			return
		}
		fn(d, ascii)
	})
}

func (s *PropertyService) set(d domain.PropertyDescriptor, ascii string) error {
	value, err := s.codec.Decode(d, ascii)
	if err != nil {
		return err
	}
	return s.store.Set(d.Name, value)
}

func (s *PropertyService) list(name string) (domain.PropertyDescriptor, error) {
	d, err := s.descriptor(name)
	if err != nil {
		return d, err
	}
	if !s.catalog.IsList(d.Name) {
		return d, fmt.Errorf("%w: %s is not a list", domain.ErrUnknownProperty, d.Name)
	}
	return d, nil
}

func (s *PropertyService) readList(d domain.PropertyDescriptor) (string, error) {
	n, err := s.store.Len(d.Name)
	if err != nil {
		return "", err
	}
	parts := make([]string, n)
	for i := range parts {
		value, err := s.store.GetIndex(d.Name, i)
		if err != nil {
			return "", err
		}
		if parts[i], err = s.codec.Encode(d, value); err != nil {
			return "", err
		}
	}
	return strings.Join(parts, LIST_SEPARATOR), nil
}

func (s *PropertyService) encodeList(d domain.PropertyDescriptor, values []int64) (string, error) {
	parts := make([]string, len(values))
	for i, v := range values {
		ascii, err := s.codec.Encode(d, v)
		if err != nil {
			return "", err
		}
		parts[i] = ascii
	}
	return strings.Join(parts, LIST_SEPARATOR), nil
}

func (s *PropertyService) writeList(d domain.PropertyDescriptor, ascii string) error {
	parts := strings.Split(ascii, LIST_SEPARATOR)
	n, err := s.store.Len(d.Name)
	if err != nil {
		return err
	}
	if len(parts) != n {
		return fmt.Errorf("%w: %s expects %d values, got %d", domain.ErrDecoding, d.Name, n, len(parts))
	}
	values := make([]any, n)
	for i, part := range parts {
		if values[i], err = s.codec.Decode(d, strings.TrimSpace(part)); err != nil {
			return err
		}
	}
	for i, v := range values {
		if err := s.store.SetIndex(d.Name, i, v); err != nil {
			return err
		}
	}
	return nil
}

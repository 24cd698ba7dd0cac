package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/berfenger/kwlsim/internal/core/domain"
)

type ChangeListener = func(name string, value any)

type listAccessor struct {
	len func() int
	get func(i int) any
	set func(i int, v any) error
	all func() any
}

type accessor struct {
	get func() any
	set func(any) error
	// touches lists properties whose value changes as a side effect of set
	touches []string
}

// Store exposes the state of a VentilationUnit by property name. Every
// property has an explicit typed accessor; there is no reflection involved.
type Store struct {
	mu        sync.RWMutex
	unit      *VentilationUnit
	accessors map[string]accessor
	lists     map[string]listAccessor
	listeners []ChangeListener
}

func New(unit *VentilationUnit) *Store {
	s := &Store{unit: unit}
	u := unit
	s.accessors = map[string]accessor{
		"Description":         stringField(&u.Description),
		"ArticleNumber":       stringField(&u.ArticleNumber),
		"SoftwareVersion":     stringField(&u.SoftwareVersion),
		"Date":                timeField(&u.Date),
		"Time":                timeField(&u.Time),
		"PreheaterEnabled":    boolField(&u.PreheaterEnabled),
		"OperationMode":       intField(&u.OperationMode),
		"FanStage":            intField(&u.FanStage),
		"FanStagePercent":     intField(&u.FanStagePercent),
		"PartyDuration":       intField(&u.PartyDuration),
		"PartyFanStage":       intField(&u.PartyFanStage),
		"PartyRemaining":      intField(&u.PartyRemaining),
		"OutsideAirTemp":      floatField(&u.OutsideAirTemp),
		"SupplyAirTemp":       floatField(&u.SupplyAirTemp),
		"ExtractAirTemp":      floatField(&u.ExtractAirTemp),
		"ExhaustAirTemp":      floatField(&u.ExhaustAirTemp),
		"ExtractHumidity":     intField(&u.ExtractHumidity),
		"FilterChangeMonths":  intField(&u.FilterChangeMonths),
		"FilterRemainingDays": intField(&u.FilterRemainingDays),
		"SupplyFanRpm":        intField(&u.SupplyFanRpm),
		"ExtractFanRpm":       intField(&u.ExtractFanRpm),
		"OperatingHours":      intField(&u.OperatingHours),
	}

	// switching party mode on starts the countdown, off clears it
	party := boolField(&u.PartyMode)
	s.accessors["PartyMode"] = accessor{
		get: party.get,
		set: func(v any) error {
			if err := party.set(v); err != nil {
				return err
			}
			if u.PartyMode {
				u.PartyRemaining = u.PartyDuration
			} else {
				u.PartyRemaining = 0
			}
			return nil
		},
		touches: []string{"PartyRemaining"},
	}

	// write-only trigger: reading it always yields false
	s.accessors["FilterReset"] = accessor{
		get: func() any { return false },
		set: func(v any) error {
			b, ok := v.(bool)
			if !ok {
				return mismatch("FilterReset", "bool", v)
			}
			if b {
				u.FilterRemainingDays = u.FilterChangeMonths * DAYS_PER_FILTER_MONTH
			}
			return nil
		},
		touches: []string{"FilterRemainingDays"},
	}

	s.lists = map[string]listAccessor{
		"WeekProgram": intList(u.WeekProgram[:]),
	}
	return s
}

// OnChange registers a listener called after every successful Set, outside the store lock.
func (s *Store) OnChange(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accessors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProperty, name)
	}
	return a.get(), nil
}

func (s *Store) Set(name string, value any) error {
	s.mu.Lock()
	a, ok := s.accessors[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrUnknownProperty, name)
	}
	if err := a.set(value); err != nil {
		s.mu.Unlock()
		return err
	}
	changed := append([]string{name}, a.touches...)
	values := make([]any, len(changed))
	for i, n := range changed {
		values[i] = s.accessors[n].get()
	}
	listeners := s.listeners
	s.mu.Unlock()

	for i, n := range changed {
		for _, l := range listeners {
			l(n, values[i])
		}
	}
	return nil
}

// GetIndex reads element i of a list property.
func (s *Store) GetIndex(name string, i int) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, err := s.list(name, i)
	if err != nil {
		return nil, err
	}
	return l.get(i), nil
}

// SetIndex writes element i of a list property. Listeners receive the whole list.
func (s *Store) SetIndex(name string, i int, value any) error {
	s.mu.Lock()
	l, err := s.list(name, i)
	if err == nil {
		err = l.set(i, value)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	all := l.all()
	listeners := s.listeners
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(name, all)
	}
	return nil
}

// Len returns the number of elements of a list property.
func (s *Store) Len(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lists[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownProperty, name)
	}
	return l.len(), nil
}

func (s *Store) list(name string, i int) (listAccessor, error) {
	l, ok := s.lists[name]
	if !ok {
		return l, fmt.Errorf("%w: %s", domain.ErrUnknownProperty, name)
	}
	if i < 0 || i >= l.len() {
		return l, fmt.Errorf("%w: %s[%d]", domain.ErrIndexOutOfRange, name, i)
	}
	return l, nil
}

// Update mutates the unit under the store lock. fn returns the names of the
// properties it changed; listeners are notified for each of them.
func (s *Store) Update(fn func(u *VentilationUnit) []string) {
	s.mu.Lock()
	changed := fn(s.unit)
	values := make([]any, 0, len(changed))
	names := make([]string, 0, len(changed))
	for _, n := range changed {
		if a, ok := s.accessors[n]; ok {
			names = append(names, n)
			values = append(values, a.get())
		}
	}
	listeners := s.listeners
	s.mu.Unlock()

	for i, n := range names {
		for _, l := range listeners {
			l(n, values[i])
		}
	}
}

func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accessors[name]
	return ok
}

// Names returns every property name the store can serve, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.accessors))
	for n := range s.accessors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the device state.
func (s *Store) Snapshot() VentilationUnit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.unit
}

func boolField(p *bool) accessor {
	return accessor{
		get: func() any { return *p },
		set: func(v any) error {
			b, ok := v.(bool)
			if !ok {
				return mismatch("bool field", "bool", v)
			}
			*p = b
			return nil
		},
	}
}

func intField(p *int64) accessor {
	return accessor{
		get: func() any { return *p },
		set: func(v any) error {
			switch n := v.(type) {
			case int64:
				*p = n
			case int:
				*p = int64(n)
			default:
				return mismatch("integer field", "int64", v)
			}
			return nil
		},
	}
}

func floatField(p *float64) accessor {
	return accessor{
		get: func() any { return *p },
		set: func(v any) error {
			f, ok := v.(float64)
			if !ok {
				return mismatch("double field", "float64", v)
			}
			*p = f
			return nil
		},
	}
}

func stringField(p *string) accessor {
	return accessor{
		get: func() any { return *p },
		set: func(v any) error {
			str, ok := v.(string)
			if !ok {
				return mismatch("string field", "string", v)
			}
			*p = str
			return nil
		},
	}
}

func timeField(p *time.Time) accessor {
	return accessor{
		get: func() any { return *p },
		set: func(v any) error {
			t, ok := v.(time.Time)
			if !ok {
				return mismatch("time field", "time.Time", v)
			}
			*p = t
			return nil
		},
	}
}

func intList(p []int64) listAccessor {
	return listAccessor{
		len: func() int { return len(p) },
		get: func(i int) any { return p[i] },
		set: func(i int, v any) error {
			switch n := v.(type) {
			case int64:
				p[i] = n
			case int:
				p[i] = int64(n)
			default:
				return mismatch("integer list", "int64", v)
			}
			return nil
		},
		all: func() any {
			out := make([]int64, len(p))
			copy(out, p)
			return out
		},
	}
}

func mismatch(field string, want string, v any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", domain.ErrTypeMismatch, field, want, v)
}

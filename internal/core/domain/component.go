package domain

const (
	ENTITY_SENSOR        = "sensor"
	ENTITY_BINARY_SENSOR = "binary_sensor"
	ENTITY_SWITCH        = "switch"
	ENTITY_NUMBER        = "number"
	ENTITY_TEXT          = "text"
	ENTITY_BUTTON        = "button"
)

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
}

// Entity is one property as announced to Home Assistant.
type Entity struct {
	Component  string
	Property   string
	Name       string
	UniqueId   string
	Unit       string
	Min        float64
	Max        float64
	Step       float64
	Writable   bool
	Diagnostic bool
}

// EntityForProperty maps a descriptor onto the Home Assistant component that fits
// its type and access mode. Properties that are neither readable nor writable
// yield ok=false.
func EntityForProperty(device Device, d PropertyDescriptor) (Entity, bool) {
	e := Entity{
		Property: d.Name,
		Name:     d.Label,
		UniqueId: device.Id + "_" + d.Name,
		Unit:     d.Unit,
		Writable: d.Access.Writable(),
	}
	if e.Name == "" {
		e.Name = d.Name
	}
	switch {
	case d.Access == WriteOnly && d.Type == TypeBool:
		e.Component = ENTITY_BUTTON
	case d.Access == WriteOnly:
		return Entity{}, false
	case d.Type == TypeBool && d.Access == ReadWrite:
		e.Component = ENTITY_SWITCH
	case d.Type == TypeBool:
		e.Component = ENTITY_BINARY_SENSOR
	case d.Access == ReadWrite && (d.Type == TypeInteger || d.Type == TypeDouble || d.Type == TypeEnum):
		e.Component = ENTITY_NUMBER
		e.Step = 1
		if d.Type == TypeDouble && d.Format.Precision > 0 {
			e.Step = 1 / pow10(d.Format.Precision)
		}
		switch {
		case d.Format.Range != nil:
			e.Min, e.Max = d.Format.Range.Min, d.Format.Range.Max
		case len(d.Format.Members) > 0:
			e.Min, e.Max = float64(d.Format.Members[0]), float64(d.Format.Members[len(d.Format.Members)-1])
		default:
			e.Min, e.Max = 0, pow10(d.Size)-1
		}
	case d.Access == ReadWrite && d.Type == TypeString:
		e.Component = ENTITY_TEXT
	default:
		e.Component = ENTITY_SENSOR
		e.Diagnostic = d.Type == TypeString || d.Type == TypeDate || d.Type == TypeTime
	}
	return e, true
}

func pow10(n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r *= 10
	}
	return r
}

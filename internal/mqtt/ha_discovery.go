package mqtt

import (
	"fmt"

	"github.com/berfenger/kwlsim/internal/core/domain"
)

const (
	BRIDGE_STATE_ID            = "bridge_state"
	ENTITY_CATEGORY_DIAGNOSTIC = "diagnostic"
	ENTITY_CATEGORY_CONFIG     = "config"
)

type HADiscoveryConfig struct {
	Device            HADiscoveryDevice `json:"device"`
	StateTopic        string            `json:"state_topic,omitempty"`
	CommandTopic      string            `json:"command_topic,omitempty"`
	StateClass        string            `json:"state_class,omitempty"`
	DeviceClass       string            `json:"device_class,omitempty"`
	UnitOfMeasurement string            `json:"unit_of_measurement,omitempty"`
	AvTopic           string            `json:"availability_topic,omitempty"`
	EntityCategory    string            `json:"entity_category,omitempty"`
	Name              string            `json:"name"`
	UniqueId          string            `json:"unique_id"`
	Platform          string            `json:"platform"`
	EnabledByDefault  *bool             `json:"enabled_by_default,omitempty"`
	PayloadOn         string            `json:"payload_on,omitempty"`
	PayloadOff        string            `json:"payload_off,omitempty"`
	PayloadPress      string            `json:"payload_press,omitempty"`
	Icon              string            `json:"icon,omitempty"`
	Min               float64           `json:"min,omitempty"`
	Max               float64           `json:"max,omitempty"`
	Step              float64           `json:"step,omitempty"`
	Mode              string            `json:"mode,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
}

func HADiscoveryEntityTopic(client *MQTTClient, device domain.Device, entity domain.Entity) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", client.DiscoveryTopic(), entity.Component, device.Id, entity.Property)
}

func HADiscoveryBridgeStateTopic(client *MQTTClient, device domain.Device) string {
	return fmt.Sprintf("%s/binary_sensor/%s/%s/config", client.DiscoveryTopic(), device.Id, BRIDGE_STATE_ID)
}

func EntityToHADiscoveryMessage(client *MQTTClient, d domain.Device, entity domain.Entity) HADiscoveryConfig {
	disConfig := HADiscoveryConfig{
		Device:            device(d),
		StateTopic:        client.PropertyStateTopic(entity.Property),
		UnitOfMeasurement: entity.Unit,
		AvTopic:           client.BridgeStateTopic(),
		Name:              entity.Name,
		UniqueId:          entity.UniqueId,
		Platform:          "mqtt",
	}
	if entity.Writable {
		disConfig.CommandTopic = client.PropertyCommandTopic(entity.Property)
	}
	if entity.Diagnostic {
		disConfig.EntityCategory = ENTITY_CATEGORY_DIAGNOSTIC
	}

	switch entity.Component {
	case domain.ENTITY_SENSOR:
		switch entity.Unit {
		case "°C":
			disConfig.DeviceClass = "temperature"
			disConfig.StateClass = "measurement"
		case "%", "rpm":
			disConfig.StateClass = "measurement"
		case "h":
			disConfig.DeviceClass = "duration"
			disConfig.StateClass = "total_increasing"
		}
	case domain.ENTITY_BINARY_SENSOR, domain.ENTITY_SWITCH:
		disConfig.PayloadOn = MQTT_PAYLOAD_ON
		disConfig.PayloadOff = MQTT_PAYLOAD_OFF
	case domain.ENTITY_NUMBER:
		disConfig.Min = entity.Min
		disConfig.Max = entity.Max
		disConfig.Step = entity.Step
		disConfig.Mode = "box"
		disConfig.EntityCategory = ENTITY_CATEGORY_CONFIG
	case domain.ENTITY_TEXT:
		disConfig.EntityCategory = ENTITY_CATEGORY_CONFIG
	case domain.ENTITY_BUTTON:
		// buttons have no state
		disConfig.StateTopic = ""
		disConfig.PayloadPress = MQTT_PAYLOAD_ON
	}
	return disConfig
}

func BridgeStateToHADiscoveryMessage(client *MQTTClient, d domain.Device) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:         device(d),
		StateTopic:     client.BridgeStateTopic(),
		DeviceClass:    "connectivity",
		EntityCategory: ENTITY_CATEGORY_DIAGNOSTIC,
		Name:           "Bridge state",
		UniqueId:       d.Id + "_" + BRIDGE_STATE_ID,
		Platform:       "mqtt",
		PayloadOn:      MQTT_PAYLOAD_ONLINE,
		PayloadOff:     MQTT_PAYLOAD_OFFLINE,
	}
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
	}
}

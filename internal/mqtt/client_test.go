package mqtt

import (
	"testing"

	"github.com/berfenger/kwlsim/internal/core/catalog"
	"github.com/berfenger/kwlsim/internal/core/domain"
	"github.com/berfenger/kwlsim/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *MQTTClient {
	cfg := util.LoadTestConfig()
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestPropertyCommandParse(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	r := propertyCommandExtractor("loremTopic")
	cmd, err := parsePropertyCommand(r, "loremTopic/property/FanStage/set", []byte(" 3\n"))
	require.NoError(err)
	assert.Equal("FanStage", cmd.Property, "property extract")
	assert.Equal("3", cmd.Payload)
}

func TestPropertyCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	r := propertyCommandExtractor("loremTopic")
	for _, topic := range []string{
		"loremTopic/property/FanStage/state",
		"loremTopic/switch/FanStage/set",
		"other/property/FanStage/set",
		"prefix/loremTopic/property/FanStage/set",
		"loremTopic/property/Fan.Stage/set",
	} {
		_, err := parsePropertyCommand(r, topic, []byte("1"))
		assert.Error(err, topic)
	}
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)

	c := testClient()
	assert.Equal("kwlsim/bridge/state", c.BridgeStateTopic())
	assert.Equal("kwlsim/property/FanStage/state", c.PropertyStateTopic("FanStage"))
	assert.Equal("kwlsim/property/FanStage/set", c.PropertyCommandTopic("FanStage"))
	assert.Equal("kwlsim/property/+/set", c.commandTopic())
}

func TestHADiscoveryMessages(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	c := testClient()
	dev := domain.Device{Id: "kwl1", Name: "KWL"}
	cat := catalog.Default()

	entity := func(name string) domain.Entity {
		d, ok := cat.Descriptor(name)
		require.True(ok)
		e, ok := domain.EntityForProperty(dev, d)
		require.True(ok)
		return e
	}

	fan := entity("FanStage")
	msg := EntityToHADiscoveryMessage(c, dev, fan)
	assert.Equal("homeassistant/number/kwl1/FanStage/config", HADiscoveryEntityTopic(c, dev, fan))
	assert.Equal("kwlsim/property/FanStage/state", msg.StateTopic)
	assert.Equal("kwlsim/property/FanStage/set", msg.CommandTopic)
	assert.Equal(0.0, msg.Min)
	assert.Equal(4.0, msg.Max)
	assert.Equal([]string{"kwl1"}, msg.Device.Id)

	temp := EntityToHADiscoveryMessage(c, dev, entity("SupplyAirTemp"))
	assert.Equal("temperature", temp.DeviceClass)
	assert.Empty(temp.CommandTopic)

	party := EntityToHADiscoveryMessage(c, dev, entity("PartyMode"))
	assert.Equal(MQTT_PAYLOAD_ON, party.PayloadOn)
	assert.NotEmpty(party.CommandTopic)

	reset := EntityToHADiscoveryMessage(c, dev, entity("FilterReset"))
	assert.Empty(reset.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ON, reset.PayloadPress)

	bridge := BridgeStateToHADiscoveryMessage(c, dev)
	assert.Equal("kwlsim/bridge/state", bridge.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, bridge.PayloadOn)
	assert.Equal("homeassistant/binary_sensor/kwl1/bridge_state/config", HADiscoveryBridgeStateTopic(c, dev))
}

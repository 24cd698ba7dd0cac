package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/berfenger/kwlsim/internal/core/domain"
	"github.com/berfenger/kwlsim/internal/util"
	"github.com/berfenger/kwlsim/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	var mu sync.Mutex
	var sent []any
	sink := func(msg any) {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, msg)
	}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, logger, sink) })
	pid := context.Spawn(props)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(ok)
	assert.True(resp.Healthy)
	assert.Equal(domain.ACTOR_ID_MQTT, resp.Id)

	result, err = context.RequestFuture(pid, domain.PublishPropertyStateRequest{
		Name:    "FanStage",
		Payload: "3",
		Retain:  true,
	}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	_, ok = result.(domain.PublishPropertyStateResponse)
	assert.True(ok)

	context.Send(pid, domain.PublishDiscoveryRequest{
		Device:   domain.Device{Id: cfg.Device.Id},
		Entities: []domain.Entity{{Component: domain.ENTITY_NUMBER, Property: "FanStage"}},
	})

	assert.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) == 2
	}, 2*time.Second, 50*time.Millisecond)

	mu.Lock()
	state := sent[0].(domain.PublishPropertyStateRequest)
	assert.Equal("FanStage", state.Name)
	assert.Equal("3", state.Payload)
	_, ok = sent[1].(domain.PublishDiscoveryRequest)
	assert.True(ok)
	mu.Unlock()

	context.Stop(pid)

	as.Shutdown()
}

package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/berfenger/kwlsim/internal/adapter/actor"
	"github.com/berfenger/kwlsim/internal/config"
	"github.com/berfenger/kwlsim/internal/core/domain"
	. "github.com/berfenger/kwlsim/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/carlmjohnson/versioninfo"
	"go.uber.org/zap"
)

const (
	HEALTH_CHECK_TIMEOUT = 3 * time.Second
)

type MQTTActorProvider func() *adactor.MQTTActor

type DeviceActorProvider func() *adactor.DeviceActor

// MasterActor supervises the device and MQTT actors and routes messages
// between them. The MQTT child is only started when a provider is given.
type MasterActor struct {
	config      config.Config
	descriptors []domain.PropertyDescriptor
	behavior    actor.Behavior
	stash       *Stash

	currentHealthCheck  healthCheckResult
	deviceActor         *actor.PID
	mqttActor           *actor.PID
	deviceActorProvider DeviceActorProvider
	mqttActorProvider   MQTTActorProvider
	logger              *zap.Logger
}

type healthCheckResult struct {
	expected       int
	healthy        map[string]bool
	state          string
	checksReceived int
	respondTo      *actor.PID
}

func NewMasterActor(config config.Config, descriptors []domain.PropertyDescriptor, deviceActorProvider DeviceActorProvider,
	mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:              config,
		descriptors:         descriptors,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		logger:              ActorLogger(domain.ACTOR_ID_MASTER, logger),
		deviceActorProvider: deviceActorProvider,
		mqttActorProvider:   mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// start device child
		deviceActorPID, err := state.startDeviceActor(ctx)
		if err != nil {
			panic(err)
		}
		state.deviceActor = deviceActorPID

		// start MQTT child
		if state.mqttActorProvider != nil {
			mqttActorPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttActorPID
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(len(state.children()))
		state.currentHealthCheck.respondTo = ForRequest(msg).ReplyTo(ctx)
		for id, pid := range state.children() {
			id := id
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, HEALTH_CHECK_TIMEOUT), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      id,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(HEALTH_CHECK_TIMEOUT + time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// redirect parsedCommand to device
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err != nil {
				state.logger.Warn("master@default invalid command", zap.Error(err))
				return
			}
			ctx.Request(state.deviceActor, cmd)
		}
	case domain.PropertyCommandResponse:
		if msg.HasResponseError() {
			state.logger.Warn("master@default property command failed", zap.String("property", msg.Name), zap.Error(msg.GetResponseError()))
		}
	case adactor.MQTTReady:
		state.logger.Debug("master@default MQTTReady")
		if state.config.MQTT.HADiscoveryEnable && state.mqttActor != nil {
			ctx.Send(state.mqttActor, state.discoveryRequest())
		}
		ctx.Request(state.deviceActor, domain.PublishAllPropertiesRequest{})
	case domain.PublishPropertyStateRequest:
		if state.mqttActor != nil {
			ctx.Send(state.mqttActor, msg)
		}
	case domain.PublishPropertyStateResponse:
		if msg.HasResponseError() {
			state.logger.Warn("master@default publish failed", zap.Error(msg.GetResponseError()))
		}
	case *actor.Terminated:
		// if the device actor is gone, terminate
		if state.deviceActor != nil && msg.Who.Equal(state.deviceActor) {
			state.logger.Error("master@default device actor terminated")
			panic(errors.New("device terminated"))
		}
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		state.currentHealthCheck.healthy[msg.Id] = msg.Healthy
		if msg.Id == domain.ACTOR_ID_DEVICE {
			state.currentHealthCheck.state = msg.State
		}
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) children() map[string]*actor.PID {
	children := map[string]*actor.PID{
		domain.ACTOR_ID_DEVICE: state.deviceActor,
	}
	if state.mqttActor != nil {
		children[domain.ACTOR_ID_MQTT] = state.mqttActor
	}
	return children
}

func (state *MasterActor) discoveryRequest() domain.PublishDiscoveryRequest {
	device := domain.Device{
		Id:           state.config.Device.Id,
		Name:         state.config.Device.Name,
		Version:      versioninfo.Short(),
		Model:        state.config.Device.Model,
		Manufacturer: state.config.Device.Manufacturer,
	}
	entities := make([]domain.Entity, 0, len(state.descriptors))
	for _, d := range state.descriptors {
		if e, ok := domain.EntityForProperty(device, d); ok {
			entities = append(entities, e)
		}
	}
	return domain.PublishDiscoveryRequest{
		Device:   device,
		Entities: entities,
	}
}

func (state *MasterActor) startDeviceActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(3, 10*time.Second, decider)

	deviceProps := actor.PropsFromProducer(func() actor.Actor {
		return state.deviceActorProvider()
	}, actor.WithSupervisor(supervisor))
	deviceActorPID, err := ctx.SpawnNamed(deviceProps, domain.ACTOR_ID_DEVICE)
	if err != nil {
		return nil, err
	}

	return deviceActorPID, nil
}

func (state *MasterActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset(expected int) {
	state.expected = expected
	state.healthy = map[string]bool{}
	state.state = ""
	state.checksReceived = 0
	state.respondTo = nil
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= state.expected
}

func (state *healthCheckResult) allHealthy() bool {
	if len(state.healthy) < state.expected {
		return false
	}
	for _, healthy := range state.healthy {
		if !healthy {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
		State:   state.state,
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}

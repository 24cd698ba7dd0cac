package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/kwlsim/internal/core/domain"
	"github.com/berfenger/kwlsim/internal/core/service"
	. "github.com/berfenger/kwlsim/internal/util/actorutil"
	"github.com/berfenger/kwlsim/pkg/easycontrols"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	// article number, read-only and always present
	PROBE_VARIABLE_ID = "00001"
	PROBE_TIMEOUT     = 2 * time.Second
)

type DeviceService interface {
	Write(name string, ascii string) error
	Properties() []service.PropertyValue
}

// DeviceActor owns property access from outside the register bridge. When a
// probe client is set, health requests round-trip a variable read through the
// Modbus listener.
type DeviceActor struct {
	ActorWithStates
	stash       *Stash
	service     DeviceService
	probe       easycontrols.VariableClient
	probeOpen   bool
	bridgeState func() string
	logger      *zap.Logger
}

type probeResult struct {
	replyTo *actor.PID
	err     error
}

func NewDeviceActor(svc DeviceService, probe easycontrols.VariableClient, bridgeState func() string, logger *zap.Logger) *DeviceActor {
	act := &DeviceActor{
		service:     svc,
		probe:       probe,
		bridgeState: bridgeState,
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_DEVICE, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(deviceStartingState{actor: act})
	return act
}

func (state *DeviceActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (a *DeviceActor) state() string {
	if a.bridgeState == nil {
		return "idle"
	}
	return a.bridgeState()
}

func (a *DeviceActor) closeProbe() {
	if a.probe != nil && a.probeOpen {
		if err := a.probe.Close(); err != nil {
			a.logger.Warn("device: cannot close probe client", zap.Error(err))
		}
		a.probeOpen = false
	}
}

// Starting state

type deviceStartingState struct {
	actor *DeviceActor
}

func (state deviceStartingState) Name() string {
	return "starting"
}

func (state deviceStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("device@starting started")
		if state.actor.probe != nil {
			if err := state.actor.probe.Open(); err != nil {
				state.actor.logger.Error("device@starting: cannot open probe client", zap.Error(err))
			} else {
				state.actor.probeOpen = true
			}
		}
		state.actor.Become(deviceIdleState(state))
		state.actor.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.actor.closeProbe()
	default:
		state.actor.logger.Debug("device@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Idle state

type deviceIdleState struct {
	actor *DeviceActor
}

func (state deviceIdleState) Name() string {
	return "idle"
}

func (state deviceIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("device@idle: ActorHealthRequest")
		req := ForRequest(msg)
		if state.actor.probe == nil {
			req.Respond(ctx, domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_DEVICE,
				Healthy: true,
				State:   state.actor.state(),
			})
			return
		}
		if !state.actor.probeOpen {
			req.Respond(ctx, domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_DEVICE,
				Healthy: false,
				State:   state.actor.state(),
			})
			return
		}
		sender := req.ReplyTo(ctx)
		probe := state.actor.probe
		NewBackgroundTask(ctx, func() (*probeResult, error) {
			if _, err := probe.ReadVariable(PROBE_VARIABLE_ID); err != nil {
				return nil, err
			}
			return &probeResult{replyTo: sender}, nil
		}).Recover(func(err error) probeResult {
			return probeResult{replyTo: sender, err: err}
		}).WithTimeout(PROBE_TIMEOUT).PipeTo(ctx.Self())
		state.actor.BecomeStacked(deviceProbingState(state))
	case domain.PropertyCommand:
		state.actor.logger.Debug("device@idle: PropertyCommand", zap.String("property", msg.Name))
		err := state.actor.service.Write(msg.Name, msg.Payload)
		if err != nil {
			state.actor.logger.Warn("device@idle: property command rejected", zap.String("property", msg.Name), zap.Error(err))
		}
		ForRequest(msg).Respond(ctx, domain.PropertyCommandResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			Name: msg.Name,
		})
	case domain.PublishAllPropertiesRequest:
		state.actor.logger.Debug("device@idle: PublishAllPropertiesRequest")
		target := ForRequest(msg).ReplyTo(ctx)
		if target == nil {
			return
		}
		for _, p := range state.actor.service.Properties() {
			if !p.Readable() {
				continue
			}
			ctx.Send(target, domain.PublishPropertyStateRequest{
				Name:    p.Name,
				Payload: p.Value,
				Retain:  true,
			})
		}
	case *actor.Stopping:
		state.actor.closeProbe()
	default:
		state.actor.logger.Debug("device@idle default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Probing state

type deviceProbingState struct {
	actor *DeviceActor
}

func (state deviceProbingState) Name() string {
	return "probing"
}

func (state deviceProbingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case probeResult:
		if msg.err != nil {
			state.actor.logger.Warn("device@probing: probe failed", zap.Error(msg.err))
		} else {
			state.actor.logger.Debug("device@probing: probe ok")
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_DEVICE,
				Healthy: msg.err == nil,
				State:   state.actor.state(),
			})
		}
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.actor.closeProbe()
	default:
		state.actor.logger.Debug("device@probing: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

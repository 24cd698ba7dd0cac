package domain

import (
	"github.com/asynkron/protoactor-go/actor"
)

const (
	ACTOR_ID_MASTER = "master"
	ACTOR_ID_MQTT   = "mqtt"
	ACTOR_ID_DEVICE = "device"
)

type ActorRef actor.PID

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// PublishPropertyStateRequest carries the encoded value of a property after a change.
type PublishPropertyStateRequest struct {
	ActorRequestMixIn
	Name    string
	Payload string
	Retain  bool
}

type PublishPropertyStateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Device   Device
	Entities []Entity
}

// PropertyCommand is a write request received from outside the register bridge.
type PropertyCommand struct {
	ActorRequestMixIn
	Name    string
	Payload string
}

type PropertyCommandResponse struct {
	ActorResponseMixIn
	Name string
}

// PublishAllPropertiesRequest asks the device to emit the state of every readable property.
type PublishAllPropertiesRequest struct {
	ActorRequestMixIn
}

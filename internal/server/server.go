package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/kwlsim/internal/config"
	"github.com/berfenger/kwlsim/internal/core/bridge"
	"github.com/berfenger/kwlsim/internal/core/service"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

type PropertyAPI interface {
	Read(name string) (string, error)
	Write(name string, ascii string) error
	ReadIndex(name string, i int) (string, error)
	WriteIndex(name string, i int, ascii string) error
	Properties() []service.PropertyValue
}

type BridgeStatus interface {
	State() bridge.State
	Stats() bridge.Stats
}

type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	properties  PropertyAPI
	bridge      BridgeStatus
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, properties PropertyAPI, bridge BridgeStatus) *http.Server {
	NewServer := &Server{
		port:        cfg.Port,
		rootContext: rootContext,
		masterActor: masterActor,
		httpLog:     cfg.HttpLog,
		properties:  properties,
		bridge:      bridge,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}

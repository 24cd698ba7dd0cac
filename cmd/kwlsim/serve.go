package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/kwlsim/internal/adapter/actor"
	"github.com/berfenger/kwlsim/internal/adapter/modbus"
	"github.com/berfenger/kwlsim/internal/adapter/scheduler"
	"github.com/berfenger/kwlsim/internal/config"
	"github.com/berfenger/kwlsim/internal/core/actor"
	"github.com/berfenger/kwlsim/internal/core/bridge"
	"github.com/berfenger/kwlsim/internal/core/catalog"
	"github.com/berfenger/kwlsim/internal/core/codec"
	"github.com/berfenger/kwlsim/internal/core/domain"
	"github.com/berfenger/kwlsim/internal/core/service"
	"github.com/berfenger/kwlsim/internal/core/store"
	"github.com/berfenger/kwlsim/internal/server"
	"github.com/berfenger/kwlsim/internal/util/actorutil"
	"github.com/berfenger/kwlsim/pkg/easycontrols"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the simulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// load and print config
			cfg, err := config.Load(v)
			if err != nil {
				slog.Error("config errors", "error", err)
				return err
			}
			config.SafePrintConfig(*cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// device state
	cat := catalog.Default()
	s := store.New(store.DefaultUnit(time.Now()))
	cdc := codec.Codec{}
	properties := service.NewPropertyService(cat, s, cdc, logger.With(zap.String("component", "properties")))
	if err := properties.ApplyDefaults(cfg.Defaults); err != nil {
		return err
	}

	// register bridge behind the Modbus listener
	bank := modbus.NewRegisterBank()
	b := bridge.New(cat, s, cdc, bank, cfg.Bridge.Options(), logger.With(zap.String("component", "bridge")))
	bank.OnWrite(b.OnRegistersWritten)
	modbusServer, err := modbus.NewServer(cfg.Modbus, bank, logger)
	if err != nil {
		return err
	}
	if err := modbusServer.Start(); err != nil {
		return err
	}
	defer modbusServer.Stop()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg, cat.Descriptors(), deviceActorProvider(cfg, properties, b, logger),
			mqttActorProvider(cfg, logger), logger)
	})
	pid, err := root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return err
	}
	defer as.Shutdown()
	defer root.Stop(pid)

	// every change is published, whatever its origin
	properties.Watch(func(d domain.PropertyDescriptor, ascii string) {
		root.Send(pid, domain.PublishPropertyStateRequest{Name: d.Name, Payload: ascii, Retain: true})
	})

	if cfg.Simulation.Enable {
		sim := scheduler.NewSimulationScheduler(service.NewSimulator(s, logger.With(zap.String("component", "simulator"))),
			time.Duration(cfg.Simulation.IntervalMillis)*time.Millisecond, logger)
		if err := sim.Start(ctx); err != nil {
			return err
		}
		defer sim.Stop()
	}

	httpServer := server.NewServer(*cfg, root, pid, properties, b)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("http: listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down gracefully")

		// the server has 5 seconds to finish the requests it is handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func deviceActorProvider(cfg *config.Config, properties *service.PropertyService, b *bridge.RegisterBridge, logger *zap.Logger) actor.DeviceActorProvider {
	return func() *adactor.DeviceActor {
		var probe easycontrols.VariableClient
		if cfg.Modbus.HealthProbe {
			client, err := easycontrols.CreateModbusVariableClient(variableClientConfig(cfg, adactor.PROBE_TIMEOUT), logger, nil)
			if err != nil {
				logger.Error("cannot create health probe client", zap.Error(err))
			} else {
				probe = client
			}
		}
		return adactor.NewDeviceActor(properties, probe, func() string {
			return b.State().String()
		}, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	if !cfg.MQTT.Enable {
		return nil
	}
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

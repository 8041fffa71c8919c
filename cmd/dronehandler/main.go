package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/symonb/drone-knr/internal/commands"
	"github.com/symonb/drone-knr/internal/config"
	"github.com/symonb/drone-knr/internal/handler"
	"github.com/symonb/drone-knr/internal/mavlink"
	"github.com/symonb/drone-knr/internal/ros2app"
	"github.com/symonb/drone-knr/internal/simlink"
	"github.com/symonb/drone-knr/internal/telemetry"
	"github.com/symonb/drone-knr/internal/types"
	"github.com/symonb/drone-knr/internal/vehicle"
)

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, syscall.SIGINT, syscall.SIGTERM)

	clk := clock.New()

	// Connect to the vehicle
	link, err := connect(context.Background(), cfg, clk)
	if err != nil {
		log.Fatalf("Unable to connect to vehicle: %v", err)
	}
	if err := run(cfg, link, clk, terminationSignals); err != nil {
		log.Fatal(err)
	}
	log.Printf("Signing off - BYE")
}

// run serves the vehicle on link until a termination signal arrives. The
// vehicle is returned to launch and the link closed on every return path.
func run(cfg config.Config, link vehicle.Link, clk clock.Clock, terminationSignals <-chan os.Signal) error {
	ctx, quitFunc := context.WithCancel(context.Background())
	defer quitFunc()
	var wg sync.WaitGroup

	v := vehicle.New(link, cfg.Vehicle, clk)
	defer func() {
		if err := v.Close(); err != nil {
			log.Printf("Vehicle teardown: %v", err)
		}
	}()

	handlers := []types.MessageHandler{
		types.NewLogger(),
		handler.New(cfg.DeviceID, v, clk),
		telemetry.New(cfg.DeviceID, link, v.State, clk, cfg.TelemetryInterval),
	}

	// Setup MQTT
	if cfg.MQTT.Broker != "" {
		mqttClient, err := commands.NewMQTTClient(ctx, cfg.MQTT, cfg.DeviceID)
		if err != nil {
			return errors.Wrap(err, "unable to connect MQTT")
		}
		defer mqttClient.Disconnect(1000)
		handlers = append(handlers, commands.New(mqttClient, cfg.MQTT, cfg.DeviceID))
	}

	// Setup ROS node
	if cfg.ROS.Enabled {
		rclContext, node, err := ros2app.Open(&wg, cfg.ROS.Namespace)
		if err != nil {
			return err
		}
		defer rclContext.Close()
		bridge, err := ros2app.NewBridge(node, cfg.DeviceID)
		if err != nil {
			return err
		}
		handlers = append(handlers, bridge)
	}

	bus := types.NewMessageBus(make(chan types.Message, 100), handlers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		bus.Run(ctx, &wg)
	}()

	// wait for termination and close quit to signal all
	<-terminationSignals
	// cancel the main context
	log.Printf("Shutting down..")
	quitFunc()
	// wait until goroutines have done their cleanup
	log.Printf("Waiting for routines to finish..")
	wg.Wait()
	return nil
}

func connect(ctx context.Context, cfg config.Config, clk clock.Clock) (vehicle.Link, error) {
	if cfg.MAVLink.Connect == simlink.ConnectString {
		log.Printf("Starting simulated vehicle")
		return simlink.Start(cfg.Sim, clk), nil
	}
	log.Printf("Connecting to vehicle on: %s", cfg.MAVLink.Connect)
	return mavlink.Connect(ctx, cfg.MAVLink, clk)
}

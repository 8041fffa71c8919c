package config

import (
	"flag"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/symonb/drone-knr/internal/commands"
	"github.com/symonb/drone-knr/internal/mavlink"
	"github.com/symonb/drone-knr/internal/simlink"
	"github.com/symonb/drone-knr/internal/telemetry"
	"github.com/symonb/drone-knr/internal/vehicle"
)

type ROS struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type Config struct {
	DeviceID          string          `yaml:"device_id"`
	MAVLink           mavlink.Config  `yaml:"mavlink"`
	Sim               simlink.Config  `yaml:"sim"`
	Vehicle           vehicle.Config  `yaml:"vehicle"`
	MQTT              commands.Config `yaml:"mqtt"`
	ROS               ROS             `yaml:"ros"`
	TelemetryInterval time.Duration   `yaml:"telemetry_interval"`
}

func Default() Config {
	return Config{
		DeviceID:          "drone",
		MAVLink:           mavlink.DefaultConfig(),
		Sim:               simlink.DefaultConfig(),
		Vehicle:           vehicle.DefaultConfig(),
		MQTT:              commands.DefaultConfig(),
		TelemetryInterval: telemetry.DefaultInterval,
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Parse builds the configuration from command line arguments. A file given
// with -config is loaded first; flags set explicitly override it.
func Parse(name string, args []string) (Config, error) {
	deafultFlagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := deafultFlagSet.String("config", "", "YAML configuration file")
	deviceID := deafultFlagSet.String("device_id", "", "The provisioned device id")
	connect := deafultFlagSet.String("connect", "", "Vehicle connection string, or \"sim\" for the built-in simulator")
	baud := deafultFlagSet.Int("baud", 0, "Serial baud rate")
	mqttBroker := deafultFlagSet.String("mqtt_broker", "", "MQTT broker protocol, address and port")
	privateKey := deafultFlagSet.String("private_key", "", "The private key for the MQTT authentication")
	sshKeyPath := deafultFlagSet.String("ssh_key_path", "", "Where initialize-trust stores the device SSH key")
	ros := deafultFlagSet.Bool("ros", false, "Enable the ROS 2 transport")
	gotoTimeout := deafultFlagSet.Duration("goto_timeout", 0, "Abort a goto after this long, 0 waits forever")
	legacyGlobal := deafultFlagSet.Bool("legacy_global_send", false, "Send global gotos through the local NED message")
	startupRetries := deafultFlagSet.Int("startup_retries", 0, "Connection attempts to retry before giving up")

	if err := deafultFlagSet.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *configPath != "" {
		var err error
		if cfg, err = Load(*configPath); err != nil {
			return Config{}, err
		}
	}

	deafultFlagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device_id":
			cfg.DeviceID = *deviceID
		case "connect":
			cfg.MAVLink.Connect = *connect
		case "baud":
			cfg.MAVLink.Baud = *baud
		case "mqtt_broker":
			cfg.MQTT.Broker = *mqttBroker
		case "private_key":
			cfg.MQTT.PrivateKeyPath = *privateKey
		case "ssh_key_path":
			cfg.MQTT.SSHKeyPath = *sshKeyPath
		case "ros":
			cfg.ROS.Enabled = *ros
		case "goto_timeout":
			cfg.Vehicle.GotoTimeout = *gotoTimeout
		case "legacy_global_send":
			cfg.Vehicle.LegacyGlobalSend = *legacyGlobal
		case "startup_retries":
			cfg.MAVLink.StartupRetries = *startupRetries
		}
	})

	if cfg.DeviceID == "" {
		return Config{}, errors.New("device_id must not be empty")
	}
	return cfg, nil
}

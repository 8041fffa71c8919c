package commands

import (
	"context"
	"crypto/tls"
	"fmt"
	"io/ioutil"
	"log"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

// MQTT parameters
const (
	QoS      = 1 // QoS 2 isn't supported in GCP
	Retain   = false
	Username = "unused" // always this value in GCP
)

type Config struct {
	Broker         string `yaml:"broker"`
	PrivateKeyPath string `yaml:"private_key"`
	Algorithm      string `yaml:"algorithm"`
	ProjectID      string `yaml:"project_id"`
	Region         string `yaml:"region"`
	RegistryID     string `yaml:"registry_id"`
	// SSHKeyPath receives the private key created by initialize-trust.
	SSHKeyPath     string `yaml:"ssh_key_path"`
}

func DefaultConfig() Config {
	return Config{
		Algorithm:  "RS256",
		ProjectID:  "auto-fleet-mgnt",
		Region:     "europe-west1",
		RegistryID: "fleet-registry",
		SSHKeyPath: "/var/lib/drone-handler/ssh_id",
	}
}

// clientID is the GCP IoT Core device path when a private key is configured
// and a plain per-device id otherwise.
func clientID(cfg Config, deviceID string) string {
	if cfg.PrivateKeyPath == "" {
		return "drone-handler-" + deviceID
	}
	return fmt.Sprintf(
		"projects/%s/locations/%s/registries/%s/devices/%s",
		cfg.ProjectID, cfg.Region, cfg.RegistryID, deviceID)
}

// newJWT signs a 24h token for audience with the PEM encoded key.
func newJWT(keyData []byte, algorithm, audience string, now time.Time) (string, error) {
	var key interface{}
	var err error
	switch algorithm {
	case "RS256":
		key, err = jwt.ParseRSAPrivateKeyFromPEM(keyData)
	case "ES256":
		key, err = jwt.ParseECPrivateKeyFromPEM(keyData)
	default:
		return "", errors.Errorf("unknown algorithm: %s", algorithm)
	}
	if err != nil {
		return "", errors.Wrap(err, "parse private key")
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(algorithm), &jwt.StandardClaims{
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(24 * time.Hour).Unix(),
		Audience:  audience,
	})
	return token.SignedString(key)
}

func clientOptions(cfg Config, deviceID string, now time.Time) (*mqtt.ClientOptions, error) {
	if cfg.Broker == "" {
		return nil, errors.New("no MQTT broker configured")
	}
	id := clientID(cfg, deviceID)
	log.Println("Client ID:", id)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetProtocolVersion(4) // Use MQTT 3.1.1

	if strings.HasPrefix(cfg.Broker, "ssl://") || strings.HasPrefix(cfg.Broker, "tls://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	if cfg.PrivateKeyPath != "" {
		keyData, err := ioutil.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, errors.Wrap(err, "load private key")
		}
		// generate JWT as the MQTT password
		pass, err := newJWT(keyData, cfg.Algorithm, cfg.ProjectID, now)
		if err != nil {
			return nil, err
		}
		opts.SetUsername(Username).SetPassword(pass)
	}
	return opts, nil
}

// NewMQTTClient connects to the broker, retrying on timeout until ctx is done.
func NewMQTTClient(ctx context.Context, cfg Config, deviceID string) (mqtt.Client, error) {
	log.Printf("address: %v", cfg.Broker)
	opts, err := clientOptions(cfg, deviceID, time.Now())
	if err != nil {
		return nil, err
	}

	client := mqtt.NewClient(opts)
	for {
		log.Printf("Connecting MQTT...")
		tok := client.Connect()
		if !tok.WaitTimeout(time.Second * 5) {
			log.Println("Connection Timeout")
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if err := tok.Error(); err != nil {
			return nil, errors.Wrap(err, "connect MQTT")
		}
		log.Printf("..Connected")
		return client, nil
	}
}

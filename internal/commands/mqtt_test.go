package commands

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"go.viam.com/test"
)

func rsaKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	test.That(t, err, test.ShouldBeNil)
	return key, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func TestNewJWT(t *testing.T) {
	key, pemData := rsaKey(t)
	now := time.Now()

	signed, err := newJWT(pemData, "RS256", "auto-fleet-mgnt", now)
	test.That(t, err, test.ShouldBeNil)

	var claims jwt.StandardClaims
	token, err := jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, token.Valid, test.ShouldBeTrue)
	test.That(t, claims.Audience, test.ShouldEqual, "auto-fleet-mgnt")
	test.That(t, claims.ExpiresAt-claims.IssuedAt, test.ShouldEqual, int64(24*60*60))
}

func TestNewJWTErrors(t *testing.T) {
	_, pemData := rsaKey(t)

	_, err := newJWT(pemData, "HS512", "aud", time.Now())
	test.That(t, err, test.ShouldNotBeNil)

	_, err = newJWT([]byte("not a key"), "RS256", "aud", time.Now())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestClientID(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, clientID(cfg, "drone-1"), test.ShouldEqual, "drone-handler-drone-1")

	cfg.PrivateKeyPath = "/enclave/rsa_private.pem"
	test.That(t, clientID(cfg, "drone-1"), test.ShouldEqual,
		"projects/auto-fleet-mgnt/locations/europe-west1/registries/fleet-registry/devices/drone-1")
}

func TestClientOptions(t *testing.T) {
	cfg := DefaultConfig()
	_, err := clientOptions(cfg, "drone-1", time.Now())
	test.That(t, err, test.ShouldNotBeNil)

	cfg.Broker = "tcp://127.0.0.1:1883"
	opts, err := clientOptions(cfg, "drone-1", time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.ClientID, test.ShouldEqual, "drone-handler-drone-1")
	test.That(t, opts.Password, test.ShouldBeEmpty)
	test.That(t, opts.Servers[0].Host, test.ShouldEqual, "127.0.0.1:1883")

	cfg.PrivateKeyPath = filepath.Join(t.TempDir(), "missing.pem")
	_, err = clientOptions(cfg, "drone-1", time.Now())
	test.That(t, err, test.ShouldNotBeNil)

	_, pemData := rsaKey(t)
	cfg.PrivateKeyPath = filepath.Join(t.TempDir(), "rsa_private.pem")
	test.That(t, ioutil.WriteFile(cfg.PrivateKeyPath, pemData, 0600), test.ShouldBeNil)
	cfg.Broker = "ssl://mqtt.googleapis.com:8883"
	opts, err = clientOptions(cfg, "drone-1", time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.Username, test.ShouldEqual, Username)
	test.That(t, opts.Password, test.ShouldNotBeEmpty)
	test.That(t, opts.Servers[0].Scheme, test.ShouldEqual, "ssl")
}

package commands

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// InitializeTrust is handled by the transport itself: the device generates a
// key pair, stores the private half and publishes the public half so the
// backend can authorize it.
const InitializeTrust = "initialize-trust"

type trustEvent struct {
	PublicSSHKey string `json:"public_ssh_key"`
}

// newTrust returns the authorized_keys line for a fresh ed25519 key.
func newTrust() (trustEvent, ed25519.PrivateKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return trustEvent{}, nil, errors.Wrap(err, "could not generate keys")
	}
	sshPublicKey, err := ssh.NewPublicKey(publicKey)
	if err != nil {
		return trustEvent{}, nil, errors.Wrap(err, "could not encode public key")
	}
	return trustEvent{
		PublicSSHKey: strings.TrimSuffix(string(ssh.MarshalAuthorizedKey(sshPublicKey)), "\n"),
	}, privateKey, nil
}

// storeIdentity writes key as a PKCS#8 PEM readable only by the owner.
func storeIdentity(path string, key ed25519.PrivateKey) error {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return errors.Wrap(err, "could not encode private key")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "could not create key directory")
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if err := ioutil.WriteFile(path, data, 0600); err != nil {
		return errors.Wrapf(err, "could not write %s", path)
	}
	// WriteFile keeps the mode of an existing file
	return errors.Wrap(os.Chmod(path, 0600), "could not restrict key file")
}

// loadIdentity reads back a key written by storeIdentity.
func loadIdentity(path string) (ssh.Signer, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.Errorf("no PEM data in %s", path)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse private key")
	}
	return ssh.NewSignerFromKey(key)
}

// createTrust generates an identity, stores it at keyPath and returns the
// event announcing it. Nothing is returned unless the key was stored.
func createTrust(keyPath string) (trustEvent, error) {
	if keyPath == "" {
		return trustEvent{}, errors.New("no ssh key path configured")
	}
	trust, privateKey, err := newTrust()
	if err != nil {
		return trustEvent{}, err
	}
	if err := storeIdentity(keyPath, privateKey); err != nil {
		return trustEvent{}, err
	}
	return trust, nil
}

func initializeTrust(client mqtt.Client, deviceID, keyPath string) {
	trust, err := createTrust(keyPath)
	if err != nil {
		log.Printf("Trust: %v", err)
		return
	}
	log.Printf("SSH identity stored in %s", keyPath)
	b, _ := json.Marshal(trust)

	// send public key to server
	topic := fmt.Sprintf("/devices/%s/events/trust", deviceID)
	tok := client.Publish(topic, QoS, Retain, b)
	if !tok.WaitTimeout(10 * time.Second) {
		log.Printf("Could not send trust within 10s")
		return
	}
	if err := tok.Error(); err != nil {
		log.Printf("Could not send trust: %v", err)
		return
	}
	log.Printf("Trust initialized")
}

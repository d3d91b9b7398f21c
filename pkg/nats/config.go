package nats

import (
	"bytes"
	"encoding/json"

	"github.com/myiotd/myiot-core/pkg/log"
)

// Config holds the connection parameters for the optional NATS bridge
// described in SPEC_FULL.md's domain stack: an ordinary bus subscriber
// that republishes ReadLogged messages onto an external NATS subject. It
// never makes the core bus itself distributed.
type Config struct {
	Address       string `json:"address"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	CredsFilePath string `json:"creds_file_path,omitempty"`
	Subject       string `json:"subject"`
}

// Keys holds the global NATS configuration loaded via Init, mirroring the
// rest of this repository's package-level config singletons.
var Keys Config

const ConfigSchema = `{
    "type": "object",
    "description": "Configuration for the NATS bridge.",
    "properties": {
        "address": {"type": "string", "description": "NATS server address, e.g. 'nats://localhost:4222'."},
        "username": {"type": "string"},
        "password": {"type": "string"},
        "creds_file_path": {"type": "string"},
        "subject": {"type": "string", "description": "Subject ReadLogged messages are republished to."}
    },
    "required": ["address", "subject"]
}`

// Init decodes rawConfig into the global Keys.
func Init(rawConfig json.RawMessage) error {
	if rawConfig == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(rawConfig))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		log.Errorf("nats: decode config: %v", err)
		return err
	}
	return nil
}

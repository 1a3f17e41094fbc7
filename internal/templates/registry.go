// Package templates holds every user-facing message string, loaded from
// an embedded YAML file so wording lives in one reviewable place.
package templates

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed config/messages.yaml
var configFiles embed.FS

// Registry is an immutable lookup of message templates keyed by name.
type Registry struct {
	messages map[string]string
}

// Load reads the embedded message file. Empty values are a packaging
// error and fail loading.
func Load() (*Registry, error) {
	data, err := configFiles.ReadFile("config/messages.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}

	var messages map[string]string
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}

	for key, value := range messages {
		if value == "" {
			return nil, fmt.Errorf("message %q is empty", key)
		}
	}
	return &Registry{messages: messages}, nil
}

// Get returns the template for key.
func (r *Registry) Get(key string) (string, error) {
	msg, ok := r.messages[key]
	if !ok {
		return "", fmt.Errorf("message %q not defined", key)
	}
	return msg, nil
}

// Format renders the template for key with fmt verbs. A missing key
// falls back to the key name itself so a wording gap never breaks a
// conversation, only disfigures one message.
func (r *Registry) Format(key string, args ...any) string {
	msg, ok := r.messages[key]
	if !ok {
		return "!" + key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Require verifies every listed key exists, so wiring can fail fast at
// startup instead of emitting fallback strings at runtime.
func (r *Registry) Require(keys ...string) error {
	for _, key := range keys {
		if _, ok := r.messages[key]; !ok {
			return fmt.Errorf("message %q not defined", key)
		}
	}
	return nil
}

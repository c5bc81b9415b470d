// ABOUTME: Loads development user seeds from a YAML file
// ABOUTME: Lets a developer reproduce specific accounts without code changes

package devserver

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// LoadUsers reads seeds from a YAML file of the form
//
//	users:
//	  - username: alice
//	    password: secret
//	    admin: true
func LoadUsers(path string) ([]UserSeed, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse users file %s: %w", path, err)
	}

	var seeds []UserSeed
	if err := k.Unmarshal("users", &seeds); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("users file %s defines no users", path)
	}
	return seeds, nil
}

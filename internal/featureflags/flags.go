// Package featureflags reads on/off switches from FLAG_<NAME> env vars.
package featureflags

import (
	"os"
	"strings"
)

const (
	// SeedDemoUser creates the demo account at startup.
	SeedDemoUser = "seed_demo_user"
	// SpecGeneration exposes the LLM-backed spec generation endpoint.
	SpecGeneration = "spec_generation"
	// ChangeRelay forwards change events across replicas through Redis.
	ChangeRelay = "change_relay"
)

var defaults = map[string]bool{
	SeedDemoUser:   true,
	SpecGeneration: true,
	ChangeRelay:    true,
}

// Enabled reports whether a flag is on. FLAG_<NAME>=true/1/yes/on turns it
// on and false/0/no/off turns it off (case-insensitive); anything else falls
// back to the flag's default.
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaults[name]
	}
}

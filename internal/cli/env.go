package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Environment holds defaults for global flags, read from FACTVIEW_*
// variables. Flags given on the command line win.
type Environment struct {
	Format  string `env:"FACTVIEW_FORMAT" envDefault:"text"`
	Verbose bool   `env:"FACTVIEW_VERBOSE"`
	DB      string `env:"FACTVIEW_DB"`
}

// LoadEnvironment reads the FACTVIEW_* variables.
func LoadEnvironment() (Environment, error) {
	var e Environment
	if err := env.Parse(&e); err != nil {
		return Environment{Format: "text"}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

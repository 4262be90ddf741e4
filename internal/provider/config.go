package provider

// Config describes how to launch and connect one external tool provider.
type Config struct {
	// Command is the executable to launch. An empty command means the
	// provider cannot be started and is skipped.
	Command string `yaml:"command"`

	// Args are passed to the command verbatim.
	Args []string `yaml:"args,omitempty"`

	// Env holds additional environment variables for the child process.
	Env map[string]string `yaml:"env,omitempty"`

	// Enabled toggles the provider. Nil means enabled.
	Enabled *bool `yaml:"enabled,omitempty"`

	// When is an optional boolean expression evaluated against the
	// environment at load time; a false result disables the provider.
	When string `yaml:"when,omitempty"`
}

// EnabledOrDefault reports whether the provider should be started.
func (c Config) EnabledOrDefault() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// Declaration pairs a provider name with its launch configuration.
// Declarations are ordered; startup honors this order and teardown
// reverses it.
type Declaration struct {
	Name   string
	Config Config
}

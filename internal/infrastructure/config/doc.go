// Package config handles loading and validating the kioskd bootstrap configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The bootstrap configuration is static for the life of the process: paths,
// listen addresses, external tool binaries, and integration credentials. It
// is distinct from the live device settings document (internal/settings),
// which users edit at runtime and which the daemon reloads on the fly.
//
// Security Considerations:
//   - Sensitive values (broker credentials, tokens) should be set via
//     environment variables
//   - The config file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Web.Port)
package config

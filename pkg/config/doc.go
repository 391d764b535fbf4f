// Package config provides configuration management for a REST connector.
//
// This package handles loading, validating, and watching configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("connector.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("connector.yaml")
//
// A minimal file binds one templated request to a function:
//
//	connector:
//	  base_url: "https://api.example.com"
//	  timeout: 10s
//	operations:
//	  - template:
//	      method: GET
//	      url: "https://maps.example.com/geocode/json"
//	      query:
//	        address: "{street},{city},{zipcode}"
//	      responsePath: "$.results[0].geometry.location"
//	    functions:
//	      geocode: [street, city, zipcode]
//
// Templates may also live in JSON files (comments allowed) referenced by
// template_file, resolved relative to the configuration file.
//
// # Secrets
//
// Strings in connector.base_url, connector.headers and operation templates
// may reference secrets as ${secret:name}. LoadConfig resolves them from
// the secrets.dir directory, then from RESTCONNECTOR_SECRET_<NAME>
// variables, and fails when one is missing. SecretPatterns returns the
// resolved values for redaction.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention RESTCONNECTOR_SECTION_FIELD.
// For example:
//
//   - RESTCONNECTOR_CONNECTOR_BASE_URL overrides connector.base_url
//   - RESTCONNECTOR_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - RESTCONNECTOR_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Watching
//
// Watcher reloads the file, its template files and its secrets directory
// on change, debouncing
// bursts of events and keeping the last valid configuration when a reload
// fails.
package config

// Restconnector turns declarative JSON request templates into callable
// REST operations.
//
// Usage:
//
//	# Print the variables a template accepts
//	restconnector schema templates/geocode.json
//
//	# Build a template without sending it
//	restconnector build templates/geocode.json --param city=Paris
//
//	# Call a configured function
//	restconnector call geocode "1 Main St" Paris --config connector.yaml
//
//	# Validate configuration and compile every template
//	restconnector lint --config connector.yaml
//
//	# Export the configured functions as OpenAPI
//	restconnector openapi --format yaml
//
//	# Expose the functions over HTTP
//	restconnector serve --config connector.yaml --watch
package main

func main() {
	Execute()
}

// Package secrets resolves ${secret:name} references in connector
// configuration.
//
// API keys and tokens rarely belong in a configuration file. Instead the
// file names them:
//
//	connector:
//	  headers:
//	    Authorization: "Bearer ${secret:github-token}"
//	operations:
//	  - template:
//	      url: "https://maps.example.com/geocode/json"
//	      query:
//	        key: "${secret:maps-api-key}"
//
// and a Manager looks each name up in its providers, in order:
//
//   - FileProvider reads <dir>/<name>, Kubernetes style. Files must be
//     mode 0600 or 0400.
//   - EnvProvider reads <prefix><NAME>, with the name upper-cased and
//     hyphens replaced by underscores: maps-api-key is read from
//     RESTCONNECTOR_SECRET_MAPS_API_KEY.
//
// Values are resolved once, when the configuration is loaded. The Manager
// remembers every value it handed out, so the loggers can redact them.
package secrets

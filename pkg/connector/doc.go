// Package connector turns a connector configuration into callable
// functions.
//
// Each configured operation holds a request template and binds it to one
// or more named functions with ordered parameters:
//
//	operations:
//	  - template:
//	      method: GET
//	      url: "http://maps.example.com/geocode/json"
//	      query:
//	        address: "{street},{city},{zipcode}"
//	    functions:
//	      geocode: [street, city, zipcode]
//
// A Connector built from it answers Call(ctx, "geocode", "1 Main St",
// "Springfield", "12345"). Every function carries remoting metadata
// (accepted arguments with their type, required flag and source, the HTTP
// verb and path) that the server and the OpenAPI export consume.
//
// The last operation also provides the "invoke" function, which builds its
// template from a raw parameter object.
//
// When CRUD is enabled, or when there are no operations, the connector
// also acts as a data access object over REST resources: models defined
// with Define map to collections under the base URL and are reached with
// Create, Find, Exists, Save, UpdateOrCreate, Destroy, DestroyAll, All and
// UpdateAttributes.
package connector

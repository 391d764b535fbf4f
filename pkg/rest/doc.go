// Package rest builds and sends HTTP requests described by request
// templates.
//
// A request template is a JSON object with the keys method, url, query,
// headers, body, attachments, timeout (milliseconds), maxRedirects and
// responsePath. Any string in it may contain variable expressions that are
// expanded by the template package at invocation time:
//
//	b := rest.Get("https://maps.example.com/geocode/json",
//	    rest.WithClient(client)).
//	    Query(map[string]any{"address": "{street},{city},{zipcode}"}).
//	    ResponsePath("$.results[0].geometry.location")
//
//	geocode := b.MustOperation("street", "city", "zipcode")
//	res, err := geocode(ctx, "107 S B St", "San Mateo", "94401")
//
// Templates can also be loaded whole with FromTemplate. Non-2xx responses
// are returned as *transport.StatusError (or one of its wrappers), so the
// status, headers and body of the failure stay available to callers.
package rest

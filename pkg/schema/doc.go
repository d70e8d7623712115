// Package schema is the JSON wire codec for the canopy event union.
//
// Every event crosses process boundaries as an envelope: the variant's own
// fields plus a "type" discriminator with stable snake_case keys. The same
// envelope is used by the step-log stores, the HTTP SSE relay, the MCP
// adapter and the CLI's JSON output, so a recorded run can be replayed
// through any of them.
//
//	data, _ := schema.Encode(domain.Response{Content: "done"})
//	// {"type":"response","content":"done"}
//	ev, _ := schema.Decode(data)
//
// Decode is exhaustive over the closed union; an unknown "type" is an
// error, never a silent fallback.
package schema

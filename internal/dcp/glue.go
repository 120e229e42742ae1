package dcp

import "github.com/ehrlich-b/dlt-router/internal/dre"

// OnConfigCommand implements spec.md §4.12's glue: parse the raw bytes,
// execute the resulting command against server, and map a parse failure to
// a single RET_ERROR byte. Every handler therefore calls exactly one
// dre.Server method and returns its response, by construction.
func OnConfigCommand(server *dre.Server, data []byte) []byte {
	cmd, ok := Parse(data)
	if !ok {
		return []byte{dre.RetError}
	}
	return cmd.Execute(server)
}

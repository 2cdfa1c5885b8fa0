// Package file provides the TOML-backed configuration store.
//
// Keys use dot notation ("api.base_url") and are written as nested tables,
// so the file reads naturally:
//
//	[api]
//	base_url = "https://docs.example.com"
//	timeout = "30s"
package file

// Package config loads wallet-store configuration from YAML files.
//
// Values support ${VAR} environment expansion, and the idps/networks
// sections declare entities to seed into the store on startup.
package config

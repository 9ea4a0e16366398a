// Package config provides the configuration of a sitescore run.
//
// Values come from three layers: built-in defaults (NewConfig), the YAML
// configuration file (.sitescore) with its defaults and per-site sections,
// and command line flags. A flag set explicitly always wins.
package config

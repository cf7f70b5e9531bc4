// Package config defines the harness configuration and loads it from YAML.
//
// Every component receives the parts of HarnessConfig it needs at
// construction; nothing reads package-level settings. A configuration file is
// optional: missing files yield DefaultConfig, and values present in a file
// override the defaults field by field. An entity entry in the file replaces
// the default entry for that kind as a whole.
package config

// Package todoapi is a thin HTTP client for the Todo Manager REST API.
//
// Every call returns the raw status code and body so callers decide what
// counts as success. Request bodies are encoded as JSON or XML depending on
// the entity kind, and responses are always requested as JSON. Identifiers are
// pulled out of response bodies with JMESPath expressions from the entity
// configuration.
package todoapi

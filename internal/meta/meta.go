package meta

import (
	"reflect"
	"time"
)

// EndpointMetadata holds the runtime metadata for a declared endpoint.
// This type is internal so external packages cannot fabricate metadata
// for endpoints they did not declare.
type EndpointMetadata struct {
	Method   string
	Path     string
	Request  reflect.Type
	Response reflect.Type
	Timeout  time.Duration
}

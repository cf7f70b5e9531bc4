package config

import (
	"time"

	"todoperf/internal/retry"
)

// Canonical entity kinds exposed by the Todo Manager API.
const (
	KindTodos      = "todos"
	KindProjects   = "projects"
	KindCategories = "categories"
)

// BodyFormat is the encoding used for request bodies.
type BodyFormat string

const (
	FormatJSON BodyFormat = "json"
	FormatXML  BodyFormat = "xml"
)

// FieldType tells the payload generator how to convert a rendered template.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldBool   FieldType = "bool"
	FieldInt    FieldType = "int"
)

// HarnessConfig is the complete configuration of a run.
type HarnessConfig struct {
	// BaseURL of the Todo Manager API, e.g. http://localhost:4567
	BaseURL string `yaml:"base_url"`
	// RequestTimeout bounds every HTTP call made by the harness.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// ResultsDir receives the exported JSON documents.
	ResultsDir string `yaml:"results_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`

	Server   ServerConfig            `yaml:"server"`
	Sampler  SamplerConfig           `yaml:"sampler"`
	Sweep    SweepConfig             `yaml:"sweep"`
	Entities map[string]EntityConfig `yaml:"entities"`
}

// ServerConfig describes how the external server is started and stopped.
type ServerConfig struct {
	// Command starts the server, e.g. [java, -jar, runTodoManagerRestAPI-1.5.5.jar].
	// When empty the harness attaches to an already running server.
	Command []string `yaml:"command,omitempty"`
	// WorkDir is the working directory of the spawned process.
	WorkDir string `yaml:"work_dir,omitempty"`
	// ReadinessPath is polled with GET until it answers 200.
	ReadinessPath string `yaml:"readiness_path"`
	// ShutdownPath is requested with GET on teardown.
	ShutdownPath string `yaml:"shutdown_path"`
	// ProbeTimeout bounds a single readiness request.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	// Startup is the readiness retry policy.
	Startup retry.Policy `yaml:"startup"`
	// ShutdownTimeout is how long to wait for the process to exit before SIGKILL.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// ShutdownOnExit requests /shutdown even when attached to a server the
	// harness did not start.
	ShutdownOnExit bool `yaml:"shutdown_on_exit,omitempty"`
}

// Sampler targets.
const (
	TargetHarness = "harness"
	TargetServer  = "server"
)

// SamplerConfig tunes the measurement sampler.
type SamplerConfig struct {
	// Target selects the process whose CPU and memory are sampled: the
	// harness itself or the spawned server. Attached runs always sample the
	// harness.
	Target string `yaml:"target"`
	// PrimeDelay is slept between priming CPU accounting and the measured call.
	PrimeDelay time.Duration `yaml:"prime_delay"`
}

// SweepConfig holds the settle pauses and cleanup bounds of a sweep.
type SweepConfig struct {
	SettleAfterClear time.Duration `yaml:"settle_after_clear"`
	SettleAfterFill  time.Duration `yaml:"settle_after_fill"`
	SettleBetweenOps time.Duration `yaml:"settle_between_ops"`
	// ClearPasses bounds the list+delete rounds used to empty a collection.
	ClearPasses int `yaml:"clear_passes"`
	// Relations is the retry policy for relationship setup calls.
	Relations retry.Policy `yaml:"relations"`
}

// EntityConfig describes one entity kind of the API.
type EntityConfig struct {
	// Singular is the XML root element name, e.g. todo.
	Singular string `yaml:"singular"`
	// Sizes are the pre-existing data-set sizes swept, in order.
	Sizes []int `yaml:"sizes"`
	// Format selects the request body encoding.
	Format BodyFormat `yaml:"format,omitempty"`
	// ListIDs is a JMESPath expression selecting ids from the collection body.
	ListIDs string `yaml:"list_ids"`
	// CreatedID is a JMESPath expression selecting the id from a create response.
	CreatedID string `yaml:"created_id"`
	// Create and Update are the field templates of generated payloads.
	Create []FieldTemplate `yaml:"create"`
	Update []FieldTemplate `yaml:"update"`
}

// FieldTemplate is one generated payload field.
type FieldTemplate struct {
	Name     string    `yaml:"name"`
	Template string    `yaml:"template"`
	Type     FieldType `yaml:"type,omitempty"`
}

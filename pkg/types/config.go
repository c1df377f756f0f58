package types

import "time"

// StageBackend selects the filesystem a worker stages files into.
type StageBackend string

const (
	// StageMemory stages files into an in-memory filesystem.
	StageMemory StageBackend = "memory"
	// StageOS stages files below a host directory.
	StageOS StageBackend = "os"
)

// StageConfig holds settings for the resource stager.
type StageConfig struct {
	// WorkDir is the directory staged files are mounted at (default "/work").
	WorkDir string `json:"work_dir" yaml:"work_dir" mapstructure:"work_dir"`

	// Backend selects memory or os staging (default memory).
	Backend StageBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Root is the host directory the os backend creates each worker's
	// private staging directory in. Empty means the system temp directory.
	Root string `json:"root,omitempty" yaml:"root,omitempty" mapstructure:"root"`
}

// WalkConfig holds settings for the tree walker.
type WalkConfig struct {
	// MaxDepth bounds the nesting the walker descends into. Zero means no
	// bound.
	MaxDepth int `json:"max_depth" yaml:"max_depth" mapstructure:"max_depth"`
}

// WorkerConfig holds settings for worker instances.
type WorkerConfig struct {
	// Jobs is the number of workers used when several files are read at
	// once (default 1).
	Jobs int `json:"jobs" yaml:"jobs" mapstructure:"jobs"`

	// Queue is the buffer size of a worker's event channel (default 64).
	Queue int `json:"queue" yaml:"queue" mapstructure:"queue"`
}

// StoreConfig holds settings for the read history store.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables the history.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// OutputFormat selects how the CLI presents events.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// OutputConfig holds presentation settings.
type OutputConfig struct {
	Format OutputFormat `json:"format" yaml:"format" mapstructure:"format"`
}

// ExternalFormat declares a converter tool that turns files with one of
// Extensions into a scinode-tree document. The tool reads the file on
// stdin and writes the document on stdout.
type ExternalFormat struct {
	Name       string   `json:"name" yaml:"name" mapstructure:"name"`
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`

	// Image is a container image, or an executable for the host runtime.
	Image string   `json:"image" yaml:"image" mapstructure:"image"`
	Args  []string `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`

	// Runtime is docker, podman or host. Empty detects docker or podman.
	Runtime string `json:"runtime,omitempty" yaml:"runtime,omitempty" mapstructure:"runtime"`

	// Timeout bounds one conversion (default 2m).
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// FormatsConfig holds the conversion capabilities beyond the built-in ones.
type FormatsConfig struct {
	External []ExternalFormat `json:"external,omitempty" yaml:"external,omitempty" mapstructure:"external"`
}

// Config groups all settings.
type Config struct {
	Stage   StageConfig   `json:"stage" yaml:"stage" mapstructure:"stage"`
	Walk    WalkConfig    `json:"walk" yaml:"walk" mapstructure:"walk"`
	Worker  WorkerConfig  `json:"worker" yaml:"worker" mapstructure:"worker"`
	Store   StoreConfig   `json:"store" yaml:"store" mapstructure:"store"`
	Output  OutputConfig  `json:"output" yaml:"output" mapstructure:"output"`
	Formats FormatsConfig `json:"formats" yaml:"formats" mapstructure:"formats"`
	Verbose bool          `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
}

// Defaults used when a setting is left empty.
const (
	DefaultWorkDir = "/work"
	DefaultJobs    = 1
	DefaultQueue   = 64
)

// WithDefaults returns a copy of c with empty settings filled in.
func (c Config) WithDefaults() Config {
	if c.Stage.WorkDir == "" {
		c.Stage.WorkDir = DefaultWorkDir
	}
	if c.Stage.Backend == "" {
		c.Stage.Backend = StageMemory
	}
	if c.Worker.Jobs <= 0 {
		c.Worker.Jobs = DefaultJobs
	}
	if c.Worker.Queue <= 0 {
		c.Worker.Queue = DefaultQueue
	}
	if c.Output.Format == "" {
		c.Output.Format = OutputText
	}
	return c
}

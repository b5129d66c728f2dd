package config

// Model is the unified, format-agnostic representation of a pipeline
// declaration: the tasks, how the development loop watches them, and how a
// release is packaged.
type Model struct {
	Tasks   []*Task  `validate:"dive"`
	Watches []*Watch `validate:"dive"`
	Server  *Server  `validate:"required"`
	Dev     *Dev     `validate:"required"`
	Release *Release `validate:"required"`
}

// Task is the format-agnostic representation of a `task` block.
type Task struct {
	Name        string `validate:"required"`
	Description string
	// Sources are root-relative glob patterns. Their order is kept, which
	// matters for concatenation.
	Sources []string `validate:"min=1,dive,required"`
	Steps   []*Step  `validate:"dive"`
	// Destinations are root-relative directories the final stream is
	// written to.
	Destinations []string `validate:"dive,required"`
	DependsOn    []string
}

// Step is the format-agnostic representation of a `step` block.
type Step struct {
	Adapter string `validate:"required"`
	Options map[string]any
}

// ReloadKind is what the dev server asks connected browsers to do once a
// watch binding's tasks have finished.
type ReloadKind string

const (
	ReloadNone  ReloadKind = "none"
	ReloadStyle ReloadKind = "style"
	ReloadFull  ReloadKind = "full"
)

// Stronger reports whether k asks for more than other does.
func (k ReloadKind) Stronger(other ReloadKind) bool {
	return k.rank() > other.rank()
}

func (k ReloadKind) rank() int {
	switch k {
	case ReloadStyle:
		return 1
	case ReloadFull:
		return 2
	default:
		return 0
	}
}

// Watch is the format-agnostic representation of a `watch` block: a binding
// of glob patterns to the tasks they re-run.
type Watch struct {
	Name   string   `validate:"required"`
	Globs  []string `validate:"min=1,dive,required"`
	Ignore []string
	Tasks  []string
	Reload ReloadKind `validate:"oneof=none style full"`
}

// Server configures the development HTTP server.
type Server struct {
	// Root is the directory served, relative to the project root.
	Root string `validate:"required"`
	Host string
	Port int `validate:"gte=0,lte=65535"`
	// ClientURL is where the injected live-reload script loads the
	// socket.io browser client from.
	ClientURL string `validate:"required"`
}

// Dev lists the tasks the development composition runs before serving.
type Dev struct {
	Tasks []string
}

// Release configures the one-shot production build.
type Release struct {
	// Dist is the distribution directory, relative to the project root.
	// It is wiped and recreated on every release.
	Dist     string `validate:"required"`
	LockFile string `validate:"required"`
	// Prebuild tasks run before the distribution directory is wiped.
	Prebuild []string
	// Tasks run after the wipe, concurrently with relocation.
	Tasks    []string
	Relocate []*Relocation `validate:"dive"`
}

// Relocation copies built files matching Sources into Dest, keeping each
// file's path relative to its glob base.
type Relocation struct {
	Name    string   `validate:"required"`
	Sources []string `validate:"min=1,dive,required"`
	Dest    string   `validate:"required"`
}

package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Tasks    []*taskBlock    `hcl:"task,block"`
	Watches  []*watchBlock   `hcl:"watch,block"`
	Servers  []*serverBlock  `hcl:"server,block"`
	Devs     []*devBlock     `hcl:"dev,block"`
	Releases []*releaseBlock `hcl:"release,block"`
}

type taskBlock struct {
	Name         string       `hcl:"name,label"`
	Description  string       `hcl:"description,optional"`
	Sources      []string     `hcl:"sources"`
	Steps        []*stepBlock `hcl:"step,block"`
	Destinations []string     `hcl:"destinations,optional"`
	DependsOn    []string     `hcl:"depends_on,optional"`
}

// stepBlock keeps its body undecoded; the attributes are the adapter's
// options and are only known to the adapter.
type stepBlock struct {
	Adapter string   `hcl:"adapter,label"`
	Options hcl.Body `hcl:",remain"`
}

type watchBlock struct {
	Name   string   `hcl:"name,label"`
	Globs  []string `hcl:"globs"`
	Ignore []string `hcl:"ignore,optional"`
	Tasks  []string `hcl:"tasks,optional"`
	Reload string   `hcl:"reload,optional"`
}

type serverBlock struct {
	Root      string `hcl:"root,optional"`
	Host      string `hcl:"host,optional"`
	Port      *int   `hcl:"port,optional"`
	ClientURL string `hcl:"client_url,optional"`
}

type devBlock struct {
	Tasks []string `hcl:"tasks,optional"`
}

type releaseBlock struct {
	Dist     string           `hcl:"dist,optional"`
	LockFile string           `hcl:"lock_file,optional"`
	Prebuild []string         `hcl:"prebuild,optional"`
	Tasks    []string         `hcl:"tasks,optional"`
	Relocate []*relocateBlock `hcl:"relocate,block"`
}

type relocateBlock struct {
	Name    string   `hcl:"name,label"`
	Sources []string `hcl:"sources"`
	Dest    string   `hcl:"dest"`
}

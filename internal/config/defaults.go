package config

// Default values used when a declaration leaves a field unset.
const (
	DefaultServerRoot = "app"
	DefaultServerHost = "localhost"
	DefaultServerPort = 3000
	DefaultClientURL  = "https://cdn.socket.io/4.7.5/socket.io.min.js"
	DefaultDist       = "dist"
	DefaultLockFile   = ".assetgrid.lock"
)

// ApplyDefaults fills every unset optional field of the model in place. A
// declared server keeps its port as is, since port 0 asks for a free one.
func (m *Model) ApplyDefaults() {
	if m.Server == nil {
		m.Server = &Server{Port: DefaultServerPort}
	}
	if m.Server.Root == "" {
		m.Server.Root = DefaultServerRoot
	}
	if m.Server.Host == "" {
		m.Server.Host = DefaultServerHost
	}
	if m.Server.ClientURL == "" {
		m.Server.ClientURL = DefaultClientURL
	}

	if m.Dev == nil {
		m.Dev = &Dev{}
	}

	if m.Release == nil {
		m.Release = &Release{}
	}
	if m.Release.Dist == "" {
		m.Release.Dist = DefaultDist
	}
	if m.Release.LockFile == "" {
		m.Release.LockFile = DefaultLockFile
	}

	for _, w := range m.Watches {
		if w.Reload == "" {
			w.Reload = ReloadFull
		}
	}
}

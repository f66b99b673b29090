package server

// Config is the host-facing server configuration.
type Config struct {
	// Address to listen on (e.g., ":8188")
	ListenAddr string

	// Version reported by the MCP endpoint.
	Version string
}

package config

// Version is the funnelboard binary version, written into export files.
// Set at build time via: -ldflags "-X github.com/funnelboard/funnelboard/internal/config.Version=<tag>"
var Version = "dev"

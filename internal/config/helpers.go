package config

import (
	"net"
	"strconv"
)

// IsDevelopment returns true for debug-level console logging
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// Address returns the HTTP listen address
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPPort))
}

// Subject joins the publisher prefix and a suffix with a dot.
func (c *PublisherConfig) Subject(suffix string) string {
	prefix := c.SubjectPrefix
	if prefix == "" {
		prefix = "seasoncast"
	}
	return prefix + "." + suffix
}

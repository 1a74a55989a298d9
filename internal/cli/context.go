package cli

import (
	"io"

	"report-generator/internal/config"
	"report-generator/internal/gateway"
)

// Context is passed to every command's Run method
type Context struct {
	Config config.Config
	Out    io.Writer
}

// Gateway builds an API client for the configured relay
func (c *Context) Gateway() (*gateway.Client, error) {
	return gateway.NewClient(c.Config.Airtable.ProxyURL)
}

package config

import (
	"errors"
	"io/fs"
	"net"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// into the process environment. Missing files are skipped; variables that
// are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv applies environment overrides: HOST and PORT replace the parts
// of web_server.listen, LOG_LEVEL and LOG_FORMAT the logging section.
func (c *Config) ApplyEnv(getenv func(string) string) {
	host, port := splitListen(c.WebServer.Listen)
	if v := strings.TrimSpace(getenv("HOST")); v != "" {
		host = v
	}
	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		port = v
	}
	if port != "" {
		c.WebServer.Listen = net.JoinHostPort(host, port)
	} else if host != "" {
		c.WebServer.Listen = host
	}

	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv("LOG_FORMAT")); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
}

func splitListen(listen string) (host, port string) {
	h, p, err := net.SplitHostPort(listen)
	if err != nil {
		return listen, ""
	}
	return h, p
}

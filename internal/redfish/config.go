package redfish

import (
	"strings"
	"time"

	"github.com/amrinderguler/ilo-collector/internal/errors"
)

type Config struct {
	Host     string
	Username string
	Password string

	// Skip TLS verification. Controllers ship self-signed certificates, so
	// deployments usually leave this on.
	Insecure bool

	// Hard bound on every request to the device.
	Timeout time.Duration

	// Number of cycles a session serves before a proactive re-login.
	// Zero relies on reactive re-auth alone.
	SessionRefresh int
}

// Endpoint returns the base URL of the controller's management API.
func (c Config) Endpoint() string {
	if strings.Contains(c.Host, "://") {
		return c.Host
	}

	return "https://" + c.Host
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Host == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "controller host is required")
	}
	if c.Username == "" || c.Password == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "controller credentials are required")
	}
	if c.Timeout <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "request timeout must be positive")
	}

	return nil
}

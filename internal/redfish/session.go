package redfish

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"

	"github.com/stmcginnis/gofish"

	"github.com/amrinderguler/ilo-collector/internal/errors"
	"github.com/amrinderguler/ilo-collector/internal/logger"
)

// Session is an authenticated handle against one controller. It is owned by
// the Manager and must not outlive an Invalidate of that Manager.
type Session struct {
	api *gofish.APIClient
}

// Service exposes the typed Redfish service root for resource reads.
func (s *Session) Service() *gofish.Service {
	return s.api.Service
}

// Get fetches a raw resource path and decodes it permissively. Used for the
// vendor-specific endpoints gofish has no types for, such as the iLO event
// log.
func (s *Session) Get(path string) (map[string]any, error) {
	resp, err := s.api.Get(path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return payload, nil
}

// Manager owns the single live session against the configured controller.
// It is not safe for concurrent use; the collector loop is sequential.
type Manager struct {
	cfg    Config
	client *gofish.APIClient
	uses   int
}

func NewManager(cfg Config) (*Manager, error) {
	errFactory := errors.New()
	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return &Manager{cfg: cfg}, nil
}

// Acquire returns a valid session, logging in when none is cached or the
// cached one has hit the proactive refresh threshold. Session lifetimes are
// undocumented for this device family, so the threshold re-login covers
// expiry the device never announces.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	if m.client != nil && m.cfg.SessionRefresh > 0 && m.uses >= m.cfg.SessionRefresh {
		logger.Debug().
			Int("uses", m.uses).
			Int("threshold", m.cfg.SessionRefresh).
			Msg("Session reached refresh threshold, re-authenticating")
		m.logout()
	}

	if m.client == nil {
		client, err := m.login(ctx)
		if err != nil {
			return nil, err
		}
		m.client = client
		m.uses = 0
	}

	m.uses++

	return &Session{api: m.client}, nil
}

// Invalidate drops the cached session after an authenticated call was
// refused. The next Acquire performs a fresh login.
func (m *Manager) Invalidate() {
	logger.Debug().Str("endpoint", m.cfg.Endpoint()).Msg("Invalidating session")
	m.logout()
}

// Close logs the session out. Safe to call with no live session.
func (m *Manager) Close() {
	m.logout()
}

func (m *Manager) login(ctx context.Context) (*gofish.APIClient, error) {
	errFactory := errors.New()

	httpClient := &http.Client{
		Timeout: m.cfg.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: m.cfg.Insecure,
			},
		},
	}

	client, err := gofish.ConnectContext(ctx, gofish.ClientConfig{
		Endpoint:   m.cfg.Endpoint(),
		Username:   m.cfg.Username,
		Password:   m.cfg.Password,
		Insecure:   m.cfg.Insecure,
		HTTPClient: httpClient,
	})
	if err != nil {
		code := classify(err)
		if code == ErrSessionExpired {
			// Rejected at login means the credentials themselves are bad.
			code = ErrAuthRejected
		}

		return nil, errFactory.Wrap(code, err).WithData(m.cfg.Endpoint())
	}

	logger.Info().Str("endpoint", m.cfg.Endpoint()).Msg("Authenticated session established")

	return client, nil
}

func (m *Manager) logout() {
	if m.client == nil {
		return
	}
	m.client.Logout()
	m.client = nil
	m.uses = 0
}

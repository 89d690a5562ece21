package services

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prudhvinik1/schoolsync/internal/syncclient"
)

// ConnectivityChecker reports whether the remote side is reachable.
type ConnectivityChecker interface {
	Probe(ctx context.Context) bool
}

// Prober checks reachability with a bounded GET against the ping URL.
type Prober struct {
	pingURL string
	enabled bool
	client  *http.Client
	logger  *slog.Logger
}

func NewProber(pingURL string, enabled bool) *Prober {
	return &Prober{
		pingURL: pingURL,
		enabled: enabled,
		client:  &http.Client{Timeout: syncclient.PingTimeout},
		logger:  slog.Default(),
	}
}

// WithHTTPClient swaps the transport (tests, custom proxies).
func (p *Prober) WithHTTPClient(client *http.Client) *Prober {
	p.client = client
	return p
}

// Probe returns true only when the ping URL answers 200. It never fails:
// every error is reported as offline. Disabled sync or a missing ping URL
// returns false without touching the network.
func (p *Prober) Probe(ctx context.Context) bool {
	if !p.enabled || p.pingURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, syncclient.PingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.pingURL, nil)
	if err != nil {
		p.logger.Warn("connectivity probe: bad request", "url", p.pingURL, "err", err)
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("connectivity probe failed", "url", p.pingURL, "err", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

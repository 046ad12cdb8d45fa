package api

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/grandcat/zeroconf"

	"gazeheat/internal/logging"
)

// Advertisement is a registered mDNS service.
type Advertisement struct {
	server *zeroconf.Server
	name   string
}

// registerService is swapped in tests.
var registerService = zeroconf.Register

// Advertise publishes the capture endpoint on the local network so headsets
// can discover it without manual configuration.
func Advertise(serviceType string, port int, logger *slog.Logger) (*Advertisement, error) {
	if port <= 0 {
		return nil, fmt.Errorf("advertise: invalid port %d", port)
	}
	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" {
		return nil, fmt.Errorf("advertise: service type is required")
	}
	uniqueID := uuid.NewString()
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	name := "Vision Pro Server " + uniqueID[:8]
	txt := []string{
		"description=Heatmap generation server",
		"hostname=" + hostname,
		"unique_id=" + uniqueID,
	}
	server, err := registerService(name, serviceType, "local.", port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("advertise %s: %w", serviceType, err)
	}
	if logger != nil {
		logger.Info("service advertised",
			logging.String("name", name),
			logging.String("service_type", serviceType),
			logging.Int("port", port),
		)
	}
	return &Advertisement{server: server, name: name}, nil
}

// Name reports the advertised instance name.
func (a *Advertisement) Name() string {
	if a == nil {
		return ""
	}
	return a.name
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}

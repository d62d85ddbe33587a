package pdxip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/sync/cio"
)

const (
	discoveryPort   = 10000
	discoveryWindow = 3 * time.Second
)

var discoveryProbe = []byte("PARADOX DISCOVER\r\n")

// DiscoveredModule is one module that answered the discovery broadcast.
type DiscoveredModule struct {
	Name   string `json:"Name"`
	Model  string `json:"Model"`
	Serial string `json:"SerialNo"`
	Host   string `json:"IP"`
	Port   int    `json:"Port"`
	MAC    string `json:"MAC"`
}

// Discover broadcasts a probe on the local network and collects every
// module that answers within the discovery window. Modules answering
// twice (multi-homed hosts) are reported once, keyed by serial.
func Discover(ctx context.Context) ([]DiscoveredModule, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("could not open discovery socket: %w", err)
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: discoveryPort}
	if _, err := conn.WriteToUDP(discoveryProbe, dst); err != nil {
		return nil, fmt.Errorf("could not send discovery probe: %w", err)
	}

	seen := map[string]bool{}
	var found []DiscoveredModule
	buf := make([]byte, 1024)
	for {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		n, err := cio.TimeoutReader(conn, discoveryWindow).Read(buf)
		if err != nil {
			// window closed, whatever answered is the result
			return found, nil
		}
		module, err := parseDiscoveryReply(buf[:n])
		if err != nil {
			log.Debug("ignoring malformed discovery reply", "err", err)
			continue
		}
		if seen[module.Serial] {
			continue
		}
		seen[module.Serial] = true
		log.Debug("discovered module", "model", module.Model, "host", module.Host, "serial", module.Serial)
		found = append(found, module)
	}
}

func parseDiscoveryReply(b []byte) (DiscoveredModule, error) {
	var module DiscoveredModule
	if err := json.Unmarshal(b, &module); err != nil {
		return module, fmt.Errorf("could not parse discovery reply: %w", err)
	}
	if module.Serial == "" || module.Host == "" {
		return module, fmt.Errorf("discovery reply missing serial or host")
	}
	if module.Port == 0 {
		module.Port = DefaultPort
	}
	return module, nil
}

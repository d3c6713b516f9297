package channel

import (
	"fmt"
	"sort"

	"github.com/retail/backend/internal/domain/channel"
)

// StaticGatewayRegistry resolves gateways from a fixed set built at
// startup
type StaticGatewayRegistry struct {
	gateways map[channel.Platform]channel.Gateway
}

// NewGatewayRegistry builds a registry from the given gateways. A later
// gateway for the same platform replaces an earlier one.
func NewGatewayRegistry(gateways ...channel.Gateway) *StaticGatewayRegistry {
	byPlatform := make(map[channel.Platform]channel.Gateway, len(gateways))
	for _, g := range gateways {
		byPlatform[g.Platform()] = g
	}
	return &StaticGatewayRegistry{gateways: byPlatform}
}

// GatewayFor returns the gateway serving the platform
func (r *StaticGatewayRegistry) GatewayFor(platform channel.Platform) (channel.Gateway, error) {
	gateway, ok := r.gateways[platform]
	if !ok {
		return nil, fmt.Errorf("no gateway registered for platform %s", platform)
	}
	return gateway, nil
}

// Platforms lists the platforms with a registered gateway
func (r *StaticGatewayRegistry) Platforms() []channel.Platform {
	platforms := make([]channel.Platform, 0, len(r.gateways))
	for p := range r.gateways {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}

// Ensure StaticGatewayRegistry implements channel.GatewayRegistry
var _ channel.GatewayRegistry = (*StaticGatewayRegistry)(nil)

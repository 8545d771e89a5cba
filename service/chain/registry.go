package chain

import (
	"strings"

	"lending/core"
)

type registry struct {
	providers map[string]core.ChainWalletProvider
}

// NewRegistry chain wallet providers keyed by network
func NewRegistry(providers ...core.ChainWalletProvider) core.ChainRegistry {
	r := &registry{
		providers: make(map[string]core.ChainWalletProvider, len(providers)),
	}

	for _, p := range providers {
		r.providers[strings.ToLower(p.Network())] = p
	}

	return r
}

func (r *registry) Provider(network string) (core.ChainWalletProvider, error) {
	if p, ok := r.providers[strings.ToLower(network)]; ok {
		return p, nil
	}

	return nil, core.ErrUnknownNetwork
}

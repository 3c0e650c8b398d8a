package network

import (
	"fmt"
	"strings"
)

// Descriptor describes one chain the bridge operates on. Descriptors are
// built once at startup and never mutated.
type Descriptor struct {
	Name              string   `json:"name"`
	Slug              string   `json:"slug"`
	NativeTokenSymbol string   `json:"native_token_symbol"`
	RPCURL            string   `json:"rpc_url"`
	FallbackRPCURLs   []string `json:"fallback_rpc_urls,omitempty"`
	NetworkID         int64    `json:"network_id"`
	IsLayer1          bool     `json:"is_layer1"`
	ExplorerURL       string   `json:"explorer_url"`
	NativeBridgeURL   string   `json:"native_bridge_url,omitempty"`
	WaitConfirmations uint64   `json:"wait_confirmations,omitempty"`
}

// IsZero reports whether d is the empty descriptor
func (d Descriptor) IsZero() bool {
	return d.Slug == "" && d.NetworkID == 0
}

// Equal compares descriptors by network id
func (d Descriptor) Equal(other Descriptor) bool {
	return d.NetworkID == other.NetworkID
}

// RPCURLs returns the primary RPC URL followed by the fallbacks
func (d Descriptor) RPCURLs() []string {
	urls := make([]string, 0, 1+len(d.FallbackRPCURLs))
	if d.RPCURL != "" {
		urls = append(urls, d.RPCURL)
	}
	return append(urls, d.FallbackRPCURLs...)
}

// TxURL returns the explorer link for a transaction hash
func (d Descriptor) TxURL(hash string) string {
	if d.ExplorerURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(d.ExplorerURL, "/"), hash)
}

func (d Descriptor) String() string {
	return d.Name
}

// Directory is the static registry of known networks, looked up by slug
type Directory struct {
	networks  []Descriptor
	bySlug    map[string]Descriptor
	l1        Descriptor
	defaultL2 Descriptor
}

// NewDirectory validates descriptors and builds a directory. The first
// layer-1 network becomes the L1 and the first layer-2 network the default L2.
func NewDirectory(descriptors []Descriptor) (*Directory, error) {
	dir := &Directory{
		networks: make([]Descriptor, 0, len(descriptors)),
		bySlug:   make(map[string]Descriptor, len(descriptors)),
	}

	for _, d := range descriptors {
		d.Slug = strings.ToLower(strings.TrimSpace(d.Slug))
		if d.Slug == "" {
			return nil, fmt.Errorf("network %q has no slug", d.Name)
		}
		if _, exists := dir.bySlug[d.Slug]; exists {
			return nil, fmt.Errorf("duplicate network slug %q", d.Slug)
		}
		if d.NetworkID <= 0 {
			return nil, fmt.Errorf("network %q has invalid network id %d", d.Slug, d.NetworkID)
		}
		if d.Name == "" {
			d.Name = d.Slug
		}

		// descriptors own their fallback list
		d.FallbackRPCURLs = append([]string(nil), d.FallbackRPCURLs...)

		dir.networks = append(dir.networks, d)
		dir.bySlug[d.Slug] = d

		if d.IsLayer1 && dir.l1.IsZero() {
			dir.l1 = d
		}
		if !d.IsLayer1 && dir.defaultL2.IsZero() {
			dir.defaultL2 = d
		}
	}

	if dir.l1.IsZero() {
		return nil, fmt.Errorf("no layer-1 network configured")
	}
	if dir.defaultL2.IsZero() {
		return nil, fmt.Errorf("no layer-2 network configured")
	}

	return dir, nil
}

// Lookup finds a network by slug
func (d *Directory) Lookup(slug string) (Descriptor, bool) {
	n, ok := d.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	return n, ok
}

// ByNetworkID finds a network by its chain id
func (d *Directory) ByNetworkID(id int64) (Descriptor, bool) {
	for _, n := range d.networks {
		if n.NetworkID == id {
			return n, true
		}
	}
	return Descriptor{}, false
}

// All returns every network in declaration order
func (d *Directory) All() []Descriptor {
	return append([]Descriptor(nil), d.networks...)
}

// L1 returns the layer-1 network
func (d *Directory) L1() Descriptor {
	return d.l1
}

// DefaultL2 returns the first declared layer-2 network
func (d *Directory) DefaultL2() Descriptor {
	return d.defaultL2
}

// L2s returns every layer-2 network
func (d *Directory) L2s() []Descriptor {
	l2s := make([]Descriptor, 0, len(d.networks))
	for _, n := range d.networks {
		if !n.IsLayer1 {
			l2s = append(l2s, n)
		}
	}
	return l2s
}

// WaitConfirmations returns how many blocks a transaction on slug needs
// before it is final. Zero means no requirement is configured.
func (d *Directory) WaitConfirmations(slug string) uint64 {
	n, ok := d.Lookup(slug)
	if !ok {
		return 0
	}
	return n.WaitConfirmations
}

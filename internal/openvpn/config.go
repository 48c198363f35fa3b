package openvpn

import (
	"net/netip"

	"go4.org/netipx"
)

// Operation modes.
const (
	ModeClient     = "client"
	ModeServer     = "server"
	ModeSiteToSite = "site-to-site"
)

// Transport protocols.
const (
	ProtocolUDP        = "udp"
	ProtocolTCPActive  = "tcp-active"
	ProtocolTCPPassive = "tcp-passive"
)

// Device types.
const (
	DeviceTun = "tun"
	DeviceTap = "tap"
)

// TLS handshake roles for static-key setups.
const (
	RoleActive  = "active"
	RolePassive = "passive"
)

// InterfaceConfig is the normalized configuration record for one OpenVPN
// interface, as handed over by the configuration loader. It is immutable
// once accepted by the validation engine; the generator only ever derives
// per-client views from it.
type InterfaceConfig struct {
	Ifname     string `json:"ifname"`
	Mode       string `json:"mode,omitempty"`
	Protocol   string `json:"protocol,omitempty"`
	DeviceType string `json:"device_type,omitempty"`

	LocalHost  string   `json:"local_host,omitempty"`
	LocalPort  uint16   `json:"local_port,omitempty"`
	RemoteHost []string `json:"remote_host,omitempty"`
	RemotePort uint16   `json:"remote_port,omitempty"`

	LocalAddress  []LocalAddress `json:"local_address,omitempty"`
	RemoteAddress []string       `json:"remote_address,omitempty"`

	IsBridgeMember      bool `json:"is_bridge_member,omitempty"`
	Disable             bool `json:"disable,omitempty"`
	Deleted             bool `json:"deleted,omitempty"`
	ReplaceDefaultRoute bool `json:"replace_default_route,omitempty"`

	MTU uint   `json:"mtu,omitempty"`
	VRF string `json:"vrf,omitempty"`

	SharedSecretKey string          `json:"shared_secret_key,omitempty"`
	TLS             *TLSOptions     `json:"tls,omitempty"`
	Server          *ServerOptions  `json:"server,omitempty"`
	Authentication  *Authentication `json:"authentication,omitempty"`
	Encryption      *Encryption     `json:"encryption,omitempty"`

	// OpenVPNOptions are raw pass-through daemon parameters. Values may
	// carry &quot; markers which the generator turns back into literal
	// quotes.
	OpenVPNOptions []string `json:"openvpn_option,omitempty"`

	PKI *PKISnapshot `json:"pki,omitempty"`
}

// LocalAddress is one locally configured tunnel address. The subnet mask is
// only meaningful for IPv4 addresses on tap devices.
type LocalAddress struct {
	Address    string `json:"address"`
	SubnetMask string `json:"subnet_mask,omitempty"`
}

// TLSOptions binds the interface to named PKI material.
type TLSOptions struct {
	CACertificate string `json:"ca_certificate,omitempty"`
	Certificate   string `json:"certificate,omitempty"`
	DHParams      string `json:"dh_params,omitempty"`
	AuthKey       string `json:"auth_key,omitempty"`
	CryptKey      string `json:"crypt_key,omitempty"`
	Role          string `json:"role,omitempty"`
}

// ServerOptions is present only in server mode.
type ServerOptions struct {
	Subnet                    []string        `json:"subnet,omitempty"`
	Client                    []ClientConfig  `json:"client,omitempty"`
	ClientIPPool              *ClientIPPool   `json:"client_ip_pool,omitempty"`
	ClientIPv6Pool            *ClientIPv6Pool `json:"client_ipv6_pool,omitempty"`
	RejectUnconfiguredClients bool            `json:"reject_unconfigured_clients,omitempty"`
	TwoFactor                 *TwoFactor      `json:"2fa,omitempty"`
	MaxConnections            uint            `json:"max_connections,omitempty"`
	DomainName                string          `json:"domain_name,omitempty"`
	NameServer                []string        `json:"name_server,omitempty"`
	PushRoute                 []string        `json:"push_route,omitempty"`
}

// ClientConfig is a per-client override rendered into its own ccd fragment.
type ClientConfig struct {
	Name      string   `json:"name"`
	IP        []string `json:"ip,omitempty"`
	IPv6IP    []string `json:"ipv6_ip,omitempty"`
	Subnet    []string `json:"subnet,omitempty"`
	PushRoute []string `json:"push_route,omitempty"`
	Disable   bool     `json:"disable,omitempty"`
}

// ClientIPPool is the dynamic IPv4 range handed to unconfigured clients.
type ClientIPPool struct {
	Start string `json:"start,omitempty"`
	Stop  string `json:"stop,omitempty"`
}

// ClientIPv6Pool derives a dynamic IPv6 range from a base prefix.
type ClientIPv6Pool struct {
	Base string `json:"base,omitempty"`
}

// TwoFactor holds second-factor toggles.
type TwoFactor struct {
	TOTP bool `json:"totp,omitempty"`
}

// Authentication carries optional username/password credentials.
type Authentication struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Encryption selects data-channel ciphers.
type Encryption struct {
	Cipher     string   `json:"cipher,omitempty"`
	NCPCiphers []string `json:"ncp_ciphers,omitempty"`
}

// Accepted is a validated configuration. Exactly one of the per-mode views
// is populated (none when the interface is deleted), so downstream stages
// never re-check which fields are legal for the mode.
type Accepted struct {
	Config   *InterfaceConfig
	Warnings []string

	Client     *ClientView
	Server     *ServerView
	SiteToSite *SiteToSiteView
}

// ClientView is the typed client-mode slice of an accepted configuration.
type ClientView struct {
	RemoteHosts []string
}

// ServerView is the typed server-mode slice of an accepted configuration.
// Zero-valued prefixes mean the corresponding subnet is not configured
// (bridge-member servers carry no subnet at all).
type ServerView struct {
	SubnetV4 netip.Prefix
	SubnetV6 netip.Prefix
	PoolV4   netipx.IPRange
	Clients  []ClientConfig
}

// SiteToSiteView is the typed site-to-site slice of an accepted
// configuration. Invalid addrs mean the family is not configured.
type SiteToSiteView struct {
	LocalV4  netip.Addr
	RemoteV4 netip.Addr
	LocalV6  netip.Addr
	RemoteV6 netip.Addr
	// SubnetMask accompanies LocalV4 on tap devices.
	SubnetMask string
}

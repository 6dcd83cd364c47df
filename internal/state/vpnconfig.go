package state

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownConfigKey = errors.New("unknown config key")
	ErrConfigType       = errors.New("config value has wrong type")
)

type Protocol string

const (
	ProtocolWireGuard Protocol = "WireGuard"
	ProtocolOpenVPN   Protocol = "OpenVPN"
	ProtocolIKEv2     Protocol = "IKEv2"
)

type TransportType string

const (
	TransportUDP TransportType = "UDP"
	TransportTCP TransportType = "TCP"
)

type DNSProvider string

const (
	DNSCloudflare DNSProvider = "Cloudflare (1.1.1.1)"
	DNSGoogle     DNSProvider = "Google (8.8.8.8)"
	DNSQuad9      DNSProvider = "Quad9 (9.9.9.9)"
	DNSAdGuard    DNSProvider = "AdGuard DNS"
	DNSSystem     DNSProvider = "System Default"
	DNSCustom     DNSProvider = "Custom DNS"
)

// Protocols lists the selectable tunnel protocols.
var Protocols = []Protocol{ProtocolWireGuard, ProtocolOpenVPN, ProtocolIKEv2}

// TransportTypes lists the selectable transports.
var TransportTypes = []TransportType{TransportUDP, TransportTCP}

// DNSProviders lists the selectable resolvers.
var DNSProviders = []DNSProvider{DNSCloudflare, DNSGoogle, DNSQuad9, DNSAdGuard, DNSSystem, DNSCustom}

// VPNConfig is the flat set of client feature toggles.
type VPNConfig struct {
	Protocol    Protocol      `json:"protocol"`
	Transport   TransportType `json:"transport"`
	Port        int           `json:"port"`
	MTU         int           `json:"mtu"`
	DNSProvider DNSProvider   `json:"dnsProvider"`
	// CustomDNS only applies when DNSProvider is DNSCustom.
	CustomDNS string `json:"customDNS"`

	KillSwitch      bool `json:"killSwitch"`
	SplitTunneling  bool `json:"splitTunneling"`
	OnionOverVPN    bool `json:"onionOverVPN"`
	Obfuscation     bool `json:"obfuscation"`
	GhostMode       bool `json:"ghostMode"`
	DynamicMAC      bool `json:"dynamicMAC"`
	Scramble        bool `json:"scramble"`
	MultiHop        bool `json:"multiHop"`
	AdBlocker       bool `json:"adBlocker"`
	MalwareShield   bool `json:"malwareShield"`
	AdaptiveRouting bool `json:"adaptiveRouting"`

	SecureCoreRouting bool `json:"secureCoreRouting"`
	DedicatedIP       bool `json:"dedicatedIP"`

	DynamicIPRotation     bool `json:"dynamicIPRotation"`
	PortScrambling        bool `json:"portScrambling"`
	AntiDPIEngine         bool `json:"antiDPIEngine"`
	DecoyTrafficGenerator bool `json:"decoyTrafficGenerator"`

	PhishingShield       bool `json:"phishingShield"`
	AntiRansomwareEngine bool `json:"antiRansomwareEngine"`
	SpywareBlocker       bool `json:"spywareBlocker"`
	IoTDeviceProtection  bool `json:"iotDeviceProtection"`

	QuantumResistantEncryption bool `json:"quantumResistantEncryption"`
	PacketPrioritizationQoS    bool `json:"packetPrioritizationQoS"`
	JitterReduction            bool `json:"jitterReduction"`
	AdvancedPortForwarding     bool `json:"advancedPortForwarding"`

	HardwareFingerprintScrambler bool `json:"hardwareFingerprintScrambler"`
	CameraMicGuard               bool `json:"cameraMicGuard"`
	USBDeviceGuard               bool `json:"usbDeviceGuard"`
	FirmwareIntegrityMonitor     bool `json:"firmwareIntegrityMonitor"`
	GeofenceProtection           bool `json:"geofenceProtection"`

	LogManagerEnabled bool `json:"logManagerEnabled"`
}

// DefaultConfig mirrors the initial toggles a fresh client starts with.
func DefaultConfig() VPNConfig {
	return VPNConfig{
		Protocol:          ProtocolWireGuard,
		Transport:         TransportUDP,
		Port:              51820,
		MTU:               1420,
		DNSProvider:       DNSCloudflare,
		KillSwitch:        true,
		AdBlocker:         true,
		MalwareShield:     true,
		LogManagerEnabled: true,
	}
}

// EffectiveDNS returns the resolver label in use, honoring CustomDNS only for DNSCustom.
func (c VPNConfig) EffectiveDNS() string {
	if c.DNSProvider == DNSCustom {
		if dns := strings.TrimSpace(c.CustomDNS); dns != "" {
			return dns
		}
		return string(DNSSystem)
	}
	return string(c.DNSProvider)
}

type field struct {
	key string
	ptr func(*VPNConfig) any
}

var fields = []field{
	{"protocol", func(c *VPNConfig) any { return &c.Protocol }},
	{"transport", func(c *VPNConfig) any { return &c.Transport }},
	{"port", func(c *VPNConfig) any { return &c.Port }},
	{"mtu", func(c *VPNConfig) any { return &c.MTU }},
	{"dnsProvider", func(c *VPNConfig) any { return &c.DNSProvider }},
	{"customDNS", func(c *VPNConfig) any { return &c.CustomDNS }},
	{"killSwitch", func(c *VPNConfig) any { return &c.KillSwitch }},
	{"splitTunneling", func(c *VPNConfig) any { return &c.SplitTunneling }},
	{"onionOverVPN", func(c *VPNConfig) any { return &c.OnionOverVPN }},
	{"obfuscation", func(c *VPNConfig) any { return &c.Obfuscation }},
	{"ghostMode", func(c *VPNConfig) any { return &c.GhostMode }},
	{"dynamicMAC", func(c *VPNConfig) any { return &c.DynamicMAC }},
	{"scramble", func(c *VPNConfig) any { return &c.Scramble }},
	{"multiHop", func(c *VPNConfig) any { return &c.MultiHop }},
	{"adBlocker", func(c *VPNConfig) any { return &c.AdBlocker }},
	{"malwareShield", func(c *VPNConfig) any { return &c.MalwareShield }},
	{"adaptiveRouting", func(c *VPNConfig) any { return &c.AdaptiveRouting }},
	{"secureCoreRouting", func(c *VPNConfig) any { return &c.SecureCoreRouting }},
	{"dedicatedIP", func(c *VPNConfig) any { return &c.DedicatedIP }},
	{"dynamicIPRotation", func(c *VPNConfig) any { return &c.DynamicIPRotation }},
	{"portScrambling", func(c *VPNConfig) any { return &c.PortScrambling }},
	{"antiDPIEngine", func(c *VPNConfig) any { return &c.AntiDPIEngine }},
	{"decoyTrafficGenerator", func(c *VPNConfig) any { return &c.DecoyTrafficGenerator }},
	{"phishingShield", func(c *VPNConfig) any { return &c.PhishingShield }},
	{"antiRansomwareEngine", func(c *VPNConfig) any { return &c.AntiRansomwareEngine }},
	{"spywareBlocker", func(c *VPNConfig) any { return &c.SpywareBlocker }},
	{"iotDeviceProtection", func(c *VPNConfig) any { return &c.IoTDeviceProtection }},
	{"quantumResistantEncryption", func(c *VPNConfig) any { return &c.QuantumResistantEncryption }},
	{"packetPrioritizationQoS", func(c *VPNConfig) any { return &c.PacketPrioritizationQoS }},
	{"jitterReduction", func(c *VPNConfig) any { return &c.JitterReduction }},
	{"advancedPortForwarding", func(c *VPNConfig) any { return &c.AdvancedPortForwarding }},
	{"hardwareFingerprintScrambler", func(c *VPNConfig) any { return &c.HardwareFingerprintScrambler }},
	{"cameraMicGuard", func(c *VPNConfig) any { return &c.CameraMicGuard }},
	{"usbDeviceGuard", func(c *VPNConfig) any { return &c.USBDeviceGuard }},
	{"firmwareIntegrityMonitor", func(c *VPNConfig) any { return &c.FirmwareIntegrityMonitor }},
	{"geofenceProtection", func(c *VPNConfig) any { return &c.GeofenceProtection }},
	{"logManagerEnabled", func(c *VPNConfig) any { return &c.LogManagerEnabled }},
}

// ConfigKeys returns every settable key in declaration order.
func ConfigKeys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

// IsToggle reports whether key names a boolean option.
func IsToggle(key string) bool {
	var zero VPNConfig
	ptr, ok := lookup(&zero, key)
	if !ok {
		return false
	}
	_, isBool := ptr.(*bool)
	return isBool
}

func lookup(c *VPNConfig, key string) (any, bool) {
	for _, f := range fields {
		if f.key == key {
			return f.ptr(c), true
		}
	}
	return nil, false
}

// Get returns the current value stored under key.
func (c VPNConfig) Get(key string) (any, error) {
	ptr, ok := lookup(&c, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}
	switch p := ptr.(type) {
	case *bool:
		return *p, nil
	case *int:
		return *p, nil
	case *string:
		return *p, nil
	case *Protocol:
		return *p, nil
	case *TransportType:
		return *p, nil
	case *DNSProvider:
		return *p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}

// Set updates the field named key. The value must match the field's declared type;
// enum fields also accept their string form, and integer fields accept whole float64
// values as produced by JSON decoding.
func (c *VPNConfig) Set(key string, value any) error {
	ptr, ok := lookup(c, key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}
	switch p := ptr.(type) {
	case *bool:
		v, ok := value.(bool)
		if !ok {
			return typeError(key, "bool", value)
		}
		*p = v
	case *int:
		v, ok := asInt(value)
		if !ok {
			return typeError(key, "int", value)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrConfigType, key)
		}
		*p = v
	case *string:
		v, ok := value.(string)
		if !ok {
			return typeError(key, "string", value)
		}
		*p = v
	case *Protocol:
		v, ok := enumValue(value, Protocols)
		if !ok {
			return typeError(key, "protocol", value)
		}
		*p = v
	case *TransportType:
		v, ok := enumValue(value, TransportTypes)
		if !ok {
			return typeError(key, "transport", value)
		}
		*p = v
	case *DNSProvider:
		v, ok := enumValue(value, DNSProviders)
		if !ok {
			return typeError(key, "dns provider", value)
		}
		*p = v
	}
	return nil
}

func typeError(key, want string, value any) error {
	return fmt.Errorf("%w: %s expects %s, got %T", ErrConfigType, key, want, value)
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

func enumValue[T ~string](value any, allowed []T) (T, bool) {
	var raw string
	switch v := value.(type) {
	case T:
		raw = string(v)
	case string:
		raw = v
	default:
		return "", false
	}
	for _, candidate := range allowed {
		if strings.EqualFold(string(candidate), raw) {
			return candidate, true
		}
	}
	return "", false
}

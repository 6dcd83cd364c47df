package state

// AuditState is the verdict for one privacy audit item.
type AuditState string

const (
	AuditPass AuditState = "pass"
	AuditWarn AuditState = "warn"
	AuditOff  AuditState = "off"
	AuditFail AuditState = "fail"
)

// AuditItem is one line of the privacy audit.
type AuditItem struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	State AuditState `json:"state"`
}

// PrivacyReport grades the protection of the current session.
type PrivacyReport struct {
	Score int         `json:"score"`
	Grade string      `json:"grade"`
	Items []AuditItem `json:"items"`
}

// connectedBase is credited for an established tunnel before any toggle.
const connectedBase = 25

type weight struct {
	points int
	on     func(VPNConfig) bool
}

var privacyWeights = []weight{
	{5, func(c VPNConfig) bool { return c.KillSwitch }},
	{3, func(c VPNConfig) bool { return c.SecureCoreRouting }},
	{2, func(c VPNConfig) bool { return c.OnionOverVPN }},

	{5, func(c VPNConfig) bool { return c.GhostMode }},
	{2, func(c VPNConfig) bool { return c.DynamicMAC }},
	{2, func(c VPNConfig) bool { return c.Scramble }},
	{3, func(c VPNConfig) bool { return c.MultiHop }},
	{2, func(c VPNConfig) bool { return c.DynamicIPRotation }},
	{2, func(c VPNConfig) bool { return c.PortScrambling }},
	{5, func(c VPNConfig) bool { return c.AntiDPIEngine }},
	{1, func(c VPNConfig) bool { return c.DecoyTrafficGenerator }},

	{3, func(c VPNConfig) bool { return c.AdBlocker }},
	{4, func(c VPNConfig) bool { return c.MalwareShield }},
	{5, func(c VPNConfig) bool { return c.PhishingShield }},
	{3, func(c VPNConfig) bool { return c.AntiRansomwareEngine }},
	{3, func(c VPNConfig) bool { return c.SpywareBlocker }},
	{2, func(c VPNConfig) bool { return c.IoTDeviceProtection }},

	{5, func(c VPNConfig) bool { return c.DNSProvider != DNSSystem }},
	{2, func(c VPNConfig) bool { return c.QuantumResistantEncryption }},

	{2, func(c VPNConfig) bool { return c.HardwareFingerprintScrambler }},
	{2, func(c VPNConfig) bool { return c.CameraMicGuard }},
	{1, func(c VPNConfig) bool { return c.USBDeviceGuard }},
	{1, func(c VPNConfig) bool { return c.FirmwareIntegrityMonitor }},
}

var grades = []struct {
	min   int
	grade string
}{
	{95, "A+"},
	{90, "A"},
	{80, "B"},
	{70, "C"},
	{60, "D"},
}

// PrivacyScore returns the 0-100 score for status and cfg. Only a connected
// session earns points.
func PrivacyScore(status ConnectionStatus, cfg VPNConfig) int {
	if status != StatusConnected {
		return 0
	}
	score := connectedBase
	for _, w := range privacyWeights {
		if w.on(cfg) {
			score += w.points
		}
	}
	return min(100, score)
}

// Grade maps a score to a letter grade, F below 60.
func Grade(score int) string {
	for _, g := range grades {
		if score >= g.min {
			return g.grade
		}
	}
	return "F"
}

// PrivacyAudit scores the session and reports each audit item. While not
// connected every item fails except the kill switch, which guards exactly
// that state.
func PrivacyAudit(status ConnectionStatus, cfg VPNConfig) PrivacyReport {
	connected := status == StatusConnected
	check := func(on bool, missing AuditState) AuditState {
		if on {
			return AuditPass
		}
		return missing
	}
	gate := func(s AuditState) AuditState {
		if !connected {
			return AuditFail
		}
		return s
	}

	score := PrivacyScore(status, cfg)
	return PrivacyReport{
		Score: score,
		Grade: Grade(score),
		Items: []AuditItem{
			{ID: "connection", Label: "Encrypted tunnel", State: gate(AuditPass)},
			{ID: "dns", Label: "DNS protection", State: gate(check(cfg.DNSProvider != DNSSystem, AuditWarn))},
			{ID: "killSwitch", Label: "Kill switch", State: check(cfg.KillSwitch, AuditWarn)},
			{ID: "threatShield", Label: "Threat shield", State: gate(check(cfg.AdBlocker || cfg.MalwareShield, AuditOff))},
			{ID: "phishing", Label: "Phishing shield", State: gate(check(cfg.PhishingShield, AuditOff))},
			{ID: "dpi", Label: "Anti-DPI engine", State: gate(check(cfg.AntiDPIEngine, AuditOff))},
			{ID: "ghostMode", Label: "Ghost mode", State: gate(check(cfg.GhostMode, AuditOff))},
		},
	}
}

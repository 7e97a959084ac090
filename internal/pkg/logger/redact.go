package logger

import (
	"net"
	"strings"
)

var secretKeys = []string{"secret", "signature", "password", "token", "authorization"}

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return RedactSecret(val)
		}
	}
	if key == "ip" || strings.HasSuffix(key, "_ip") || strings.Contains(key, "ip_address") {
		return RedactIP(val)
	}
	return val
}

// RedactSecret keeps the first four characters of a credential.
// "sk_live_abcdef" → "sk_l***"
func RedactSecret(s string) string {
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}

// RedactIP masks the host part of an address.
// "203.0.113.42" → "203.0.113.0", "2001:db8::1" → "2001:db8::"
func RedactIP(s string) string {
	ip := net.ParseIP(s)
	if ip == nil {
		return "***"
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return ip.Mask(net.CIDRMask(48, 128)).String()
}

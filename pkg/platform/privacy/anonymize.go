// Package privacy masks personal data before it reaches logs.
package privacy

import (
	"fmt"
	"net"
	"strings"
	"unicode/utf8"
)

// AnonymizeIP truncates an IP address to its network prefix: /24 for IPv4 and
// /48 for IPv6. Returns "unknown" for empty input and "invalid" for values that
// do not parse.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

// MaskIdentityNumber keeps only the last four characters of a national identity
// number. Values of four characters or fewer are fully masked.
func MaskIdentityNumber(v string) string {
	v = strings.TrimSpace(v)
	n := utf8.RuneCountInString(v)
	if n == 0 {
		return ""
	}
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	runes := []rune(v)
	return strings.Repeat("*", n-4) + string(runes[n-4:])
}

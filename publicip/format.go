package publicip

import "strings"

// FormatAddress renders an address for a narrow status line. IPv6 addresses
// with at least three colon-separated groups collapse to "first::last"; any
// other input is returned unchanged. The result is for display only.
func FormatAddress(addr string) string {
	if !strings.Contains(addr, ":") {
		return addr
	}
	groups := strings.Split(addr, ":")
	if len(groups) < 3 {
		return addr
	}
	return groups[0] + "::" + groups[len(groups)-1]
}

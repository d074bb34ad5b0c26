package ingest

import (
	"net/mail"
	"strings"
)

// parseAddress extracts (displayName, lowercase email) from a raw header
// value like `"Jane Doe" <jane@example.com>`. Falls back to treating the
// whole value as a bare address when it does not parse.
func parseAddress(header string) (name, email string) {
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return "", strings.ToLower(strings.TrimSpace(header))
	}
	return strings.TrimSpace(addr.Name), strings.ToLower(addr.Address)
}

// firstAddress extracts the first recipient from a raw To header.
func firstAddress(header string) (name, email string) {
	addrs, err := mail.ParseAddressList(header)
	if err == nil && len(addrs) > 0 {
		return strings.TrimSpace(addrs[0].Name), strings.ToLower(addrs[0].Address)
	}
	first, _, _ := strings.Cut(header, ",")
	return parseAddress(first)
}

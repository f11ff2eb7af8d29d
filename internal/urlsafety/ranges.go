package urlsafety

import "net/netip"

// BlockedRange is a reserved network range that submitted URLs may never point into.
type BlockedRange struct {
	Prefix netip.Prefix
	Label  string
}

// blockedRanges is the full table of ranges rejected for both address families.
// Containment is checked with netip.Prefix.Contains, never by string prefix.
var blockedRanges = []BlockedRange{
	{Prefix: netip.MustParsePrefix("127.0.0.0/8"), Label: "loopback"},
	{Prefix: netip.MustParsePrefix("10.0.0.0/8"), Label: "private"},
	{Prefix: netip.MustParsePrefix("172.16.0.0/12"), Label: "private"},
	{Prefix: netip.MustParsePrefix("192.168.0.0/16"), Label: "private"},
	{Prefix: netip.MustParsePrefix("169.254.0.0/16"), Label: "link-local"},
	{Prefix: netip.MustParsePrefix("::1/128"), Label: "loopback"},
	{Prefix: netip.MustParsePrefix("fc00::/7"), Label: "unique-local"},
	{Prefix: netip.MustParsePrefix("fe80::/10"), Label: "link-local"},
}

// BlockedRanges returns a copy of the blocked range table.
func BlockedRanges() []BlockedRange {
	out := make([]BlockedRange, len(blockedRanges))
	copy(out, blockedRanges)

	return out
}

// IsBlocked reports whether addr falls inside any blocked range.
// IPv4-mapped IPv6 addresses (::ffff:a.b.c.d) are checked as their IPv4 form
// and zones are ignored.
func IsBlocked(addr netip.Addr) bool {
	_, blocked := Classify(addr)

	return blocked
}

// Classify returns the first blocked range containing addr.
// Invalid addresses are reported as blocked.
func Classify(addr netip.Addr) (BlockedRange, bool) {
	if !addr.IsValid() {
		return BlockedRange{Label: "invalid"}, true
	}

	addr = addr.Unmap().WithZone("")

	for _, r := range blockedRanges {
		if r.Prefix.Contains(addr) {
			return r, true
		}
	}

	return BlockedRange{}, false
}

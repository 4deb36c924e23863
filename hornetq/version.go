package hornetq

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol versions are single incrementing ordinals. A connection negotiates
// one version at logon and every envelope sent on that connection carries it.
const (
	ProtocolV1 byte = iota + 1
	ProtocolV2

	CurrentProtocolVersion = ProtocolV2
)

// SupportedVersion reports whether this client can decode envelopes tagged
// with the given protocol version.
func SupportedVersion(version byte) bool {
	return version >= ProtocolV1 && version <= CurrentProtocolVersion
}

// NegotiateVersion picks the protocol version for a connection: the highest
// version both sides understand.
func NegotiateVersion(client byte, server byte) byte {
	if server < client {
		return server
	}
	return client
}

// VersionInfo holds the components of a server release string such as
// "2.4.0.Final". The server reports its release during version negotiation.
type VersionInfo struct {
	Major     uint
	Minor     uint
	Micro     uint
	Qualifier string
}

// String returns the release in dotted form.
func (version VersionInfo) String() string {
	release := fmt.Sprintf("%d.%d.%d", version.Major, version.Minor, version.Micro)
	if version.Qualifier != "" {
		release += "." + version.Qualifier
	}
	return release
}

// Compare orders two releases by their numeric components. Qualifiers do not
// participate in ordering. Returns -1, 0 or 1.
func (version VersionInfo) Compare(other VersionInfo) int {
	pairs := [3][2]uint{
		{version.Major, other.Major},
		{version.Minor, other.Minor},
		{version.Micro, other.Micro},
	}
	for _, pair := range pairs {
		if pair[0] < pair[1] {
			return -1
		}
		if pair[0] > pair[1] {
			return 1
		}
	}
	return 0
}

// ParseVersionInfo parses a dotted release string. Numeric components stop at
// the first part that is not a number; whatever remains becomes the qualifier.
// Missing components parse as zero.
func ParseVersionInfo(release string) VersionInfo {
	parts := strings.Split(release, ".")
	values := make([]uint, 0, 3)
	index := 0
	for ; index < len(parts) && len(values) < 3; index++ {
		value, err := strconv.ParseUint(parts[index], 10, 32)
		if err != nil {
			break
		}
		values = append(values, uint(value))
	}

	info := VersionInfo{}
	if len(values) > 0 {
		info.Major = values[0]
	}
	if len(values) > 1 {
		info.Minor = values[1]
	}
	if len(values) > 2 {
		info.Micro = values[2]
	}
	if index < len(parts) {
		info.Qualifier = strings.Join(parts[index:], ".")
	}
	return info
}

package model

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Address is an IPv4 endpoint held as a plain 32-bit integer.
// It is only rendered in dotted-decimal form for display.
type Address uint32

// String returns the dotted-decimal form of the address.
func (a Address) String() string {
	return netip.AddrFrom4([4]byte{byte(a >> 24), byte(a >> 16), byte(a >> 8), byte(a)}).String()
}

// ParseAddress accepts either an unsigned integer literal ("3232235777")
// or a dotted quad ("192.168.1.1").
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	if v, err := strconv.ParseUint(s, 10, 32); err == nil {
		return Address(v), nil
	}
	ip, err := netip.ParseAddr(s)
	if err != nil || !ip.Is4() {
		return 0, fmt.Errorf("invalid IPv4 address %q", s)
	}
	b := ip.As4()
	return Address(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])), nil
}

// FlowRecord holds one pre-parsed input row. Fields that were missing or
// unparseable in the input are 0.
type FlowRecord struct {
	Seq       uint64 // Row ordinal, for diagnostics only.
	Protocol  uint8
	Timestamp float64
	Src       Address
	Dst       Address
	SrcPort   uint16
	DstPort   uint16
	TTL       uint8
	Length    uint32
	Fragment  uint32
	Flags     uint16
}

// CategoryCounts holds the per-category received counts of a destination
// that passed the analysis threshold.
type CategoryCounts struct {
	SynOnly         uint64 `json:"syn_only"`
	AckOnly         uint64 `json:"ack_only"`
	SynAck          uint64 `json:"syn_ack"`
	RstOnly         uint64 `json:"rst_only"`
	RstAck          uint64 `json:"rst_ack"`
	TCP             uint64 `json:"tcp"`
	ICMP            uint64 `json:"icmp"`
	UDP             uint64 `json:"udp"`
	ReceivedSources uint64 `json:"received_sources"`
}

// AddressStats combines the sent and received views of a single address.
// Received and Sent are ordered by timestamp.
type AddressStats struct {
	Address Address

	BytesReceived       uint64
	ReceivedConnections uint64
	Received            []FlowRecord
	FirstReceived       float64
	LastReceived        float64

	BytesSent       uint64
	SentConnections uint64
	Sent            []FlowRecord
	FirstSent       float64
	LastSent        float64

	// Categories is nil unless the address qualified for detailed analysis.
	Categories *CategoryCounts
}

package protocol

import (
	"FlowSpectra/internal/model"

	"github.com/google/gopacket/layers"
)

// Category is the coarse transport classification of a record.
type Category uint8

const (
	Other Category = iota
	TCP
	UDP
	ICMP
)

func (c Category) String() string {
	switch c {
	case TCP:
		return "TCP"
	case UDP:
		return "UDP"
	case ICMP:
		return "ICMP"
	default:
		return "OTHER"
	}
}

// TCP control flag bits as they appear in the flags column.
const (
	FlagSYN uint16 = 0x02
	FlagRST uint16 = 0x04
	FlagACK uint16 = 0x10
)

// Classify maps an IP protocol number onto its Category.
func Classify(proto uint8) Category {
	switch layers.IPProtocol(proto) {
	case layers.IPProtocolTCP:
		return TCP
	case layers.IPProtocolUDP:
		return UDP
	case layers.IPProtocolICMPv4:
		return ICMP
	default:
		return Other
	}
}

func has(flags, bit uint16) bool {
	return flags&bit == bit
}

// SynOnly reports SYN set with ACK clear.
func SynOnly(flags uint16) bool {
	return has(flags, FlagSYN) && !has(flags, FlagACK)
}

// AckOnly reports ACK set with both SYN and RST clear.
func AckOnly(flags uint16) bool {
	return has(flags, FlagACK) && !has(flags, FlagSYN) && !has(flags, FlagRST)
}

// SynAck reports SYN and ACK both set, whatever the other bits are.
func SynAck(flags uint16) bool {
	return has(flags, FlagSYN|FlagACK)
}

// RstOnly reports RST set with ACK clear.
func RstOnly(flags uint16) bool {
	return has(flags, FlagRST) && !has(flags, FlagACK)
}

// RstAck reports RST and ACK both set.
func RstAck(flags uint16) bool {
	return has(flags, FlagRST|FlagACK)
}

// Predicate selects records.
type Predicate func(r *model.FlowRecord) bool

// NamedPredicate is a labelled Predicate.
type NamedPredicate struct {
	Label string
	Match Predicate
}

func flagPredicate(f func(uint16) bool) Predicate {
	return func(r *model.FlowRecord) bool { return f(r.Flags) }
}

func protocolPredicate(c Category) Predicate {
	return func(r *model.FlowRecord) bool { return Classify(r.Protocol) == c }
}

// Categories returns the flag and protocol categories in reporting order.
// The flag categories deliberately overlap and do not cover every record.
func Categories() []NamedPredicate {
	return []NamedPredicate{
		{Label: "SYN", Match: flagPredicate(SynOnly)},
		{Label: "ACK", Match: flagPredicate(AckOnly)},
		{Label: "SYN-ACK", Match: flagPredicate(SynAck)},
		{Label: "RST", Match: flagPredicate(RstOnly)},
		{Label: "RST-ACK", Match: flagPredicate(RstAck)},
		{Label: TCP.String(), Match: protocolPredicate(TCP)},
		{Label: UDP.String(), Match: protocolPredicate(UDP)},
		{Label: ICMP.String(), Match: protocolPredicate(ICMP)},
	}
}

// Count tallies the category counters of a set of received records.
func Count(records []model.FlowRecord) model.CategoryCounts {
	var c model.CategoryCounts
	sources := make(map[model.Address]struct{})
	for i := range records {
		r := &records[i]
		sources[r.Src] = struct{}{}
		if SynOnly(r.Flags) {
			c.SynOnly++
		}
		if AckOnly(r.Flags) {
			c.AckOnly++
		}
		if SynAck(r.Flags) {
			c.SynAck++
		}
		if RstOnly(r.Flags) {
			c.RstOnly++
		}
		if RstAck(r.Flags) {
			c.RstAck++
		}
		switch Classify(r.Protocol) {
		case TCP:
			c.TCP++
		case UDP:
			c.UDP++
		case ICMP:
			c.ICMP++
		}
	}
	c.ReceivedSources = uint64(len(sources))
	return c
}

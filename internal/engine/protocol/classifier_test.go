package protocol

import (
	"FlowSpectra/internal/model"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := map[uint8]Category{6: TCP, 17: UDP, 1: ICMP, 0: Other, 47: Other, 58: Other}
	for proto, want := range cases {
		if got := Classify(proto); got != want {
			t.Errorf("Classify(%d) = %s, want %s", proto, got, want)
		}
	}
}

func TestFlagPredicates(t *testing.T) {
	// want holds SynOnly, AckOnly, SynAck, RstOnly, RstAck in that order.
	cases := []struct {
		name  string
		flags uint16
		want  [5]bool
	}{
		{"none", 0, [5]bool{}},
		{"fin", 0x01, [5]bool{}},
		{"syn", FlagSYN, [5]bool{true, false, false, false, false}},
		{"ack", FlagACK, [5]bool{false, true, false, false, false}},
		{"psh-ack", FlagACK | 0x08, [5]bool{false, true, false, false, false}},
		{"syn-ack", FlagSYN | FlagACK, [5]bool{false, false, true, false, false}},
		{"rst", FlagRST, [5]bool{false, false, false, true, false}},
		{"rst-ack", FlagRST | FlagACK, [5]bool{false, false, false, false, true}},
		{"syn-rst", FlagSYN | FlagRST, [5]bool{true, false, false, true, false}},
		{"syn-rst-ack", FlagSYN | FlagRST | FlagACK, [5]bool{false, false, true, false, true}},
	}
	for _, c := range cases {
		got := [5]bool{SynOnly(c.flags), AckOnly(c.flags), SynAck(c.flags), RstOnly(c.flags), RstAck(c.flags)}
		if got != c.want {
			t.Errorf("%s (%#x): got %v, want %v", c.name, c.flags, got, c.want)
		}
	}
}

func TestSynOnlyAndAckOnlyExclusive(t *testing.T) {
	for flags := uint16(0); flags < 1<<9; flags++ {
		if SynOnly(flags) && AckOnly(flags) {
			t.Fatalf("flags %#x matched both SYN-only and ACK-only", flags)
		}
		if SynAck(flags) && (SynOnly(flags) || AckOnly(flags)) {
			t.Fatalf("flags %#x matched SYN-ACK and a single-flag category", flags)
		}
	}
}

func TestCount(t *testing.T) {
	records := []model.FlowRecord{
		{Src: 1, Protocol: 6, Flags: FlagSYN},
		{Src: 1, Protocol: 6, Flags: FlagSYN | FlagACK},
		{Src: 2, Protocol: 6, Flags: FlagACK},
		{Src: 2, Protocol: 6, Flags: FlagRST | FlagACK},
		{Src: 3, Protocol: 17},
		{Src: 3, Protocol: 1},
		{Src: 4, Protocol: 47},
	}

	c := Count(records)
	want := model.CategoryCounts{
		SynOnly: 1, AckOnly: 1, SynAck: 1, RstOnly: 0, RstAck: 1,
		TCP: 4, UDP: 1, ICMP: 1, ReceivedSources: 4,
	}
	if c != want {
		t.Errorf("Count = %+v, want %+v", c, want)
	}
}

func TestCategoriesOrder(t *testing.T) {
	want := []string{"SYN", "ACK", "SYN-ACK", "RST", "RST-ACK", "TCP", "UDP", "ICMP"}
	got := Categories()
	if len(got) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(got))
	}
	rec := &model.FlowRecord{Protocol: 17}
	for i, np := range got {
		if np.Label != want[i] {
			t.Errorf("category %d: label %s, want %s", i, np.Label, want[i])
		}
		if match := np.Match(rec); match != (np.Label == "UDP") {
			t.Errorf("category %s: unexpected match %v for a flagless UDP record", np.Label, match)
		}
	}
}

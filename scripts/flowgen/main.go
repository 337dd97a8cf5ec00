package main

import (
	"FlowSpectra/internal/engine/protocol"
	"FlowSpectra/internal/model"
	"FlowSpectra/pkg/flowcsv"
	"bufio"
	"flag"
	"log"
	"math/rand"
	"os"

	"github.com/google/gopacket/layers"
)

// flowgen writes a synthetic flow CSV: background traffic between random
// hosts plus a few hot destinations receiving SYN floods, so that fs-analyzer
// has something to report.
func main() {
	outputFile := flag.String("o", "flows.csv", "Output CSV file path")
	recordCount := flag.Int("c", 10000, "Number of records to generate")
	hot := flag.Int("hot", 2, "Number of destinations receiving a SYN flood")
	hotShare := flag.Float64("share", 0.3, "Share of records aimed at the hot destinations")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(*seed))
	bw := bufio.NewWriter(f)
	w := flowcsv.NewWriter(bw)

	hosts := make([]model.Address, 64)
	for i := range hosts {
		hosts[i] = model.Address(0xC0A80000 | uint32(rng.Intn(1<<16)))
	}
	targets := make([]model.Address, *hot)
	for i := range targets {
		targets[i] = model.Address(0x0A000000 | uint32(i+1))
	}

	log.Printf("Generating %d records into %s...", *recordCount, *outputFile)

	ts := 1500000000.0
	for i := 0; i < *recordCount; i++ {
		ts += rng.ExpFloat64() * 0.01
		rec := model.FlowRecord{
			Seq:       uint64(i + 1),
			Timestamp: ts,
			Src:       hosts[rng.Intn(len(hosts))],
			Dst:       hosts[rng.Intn(len(hosts))],
			SrcPort:   uint16(rng.Intn(65535-1024) + 1024),
			TTL:       uint8(32 + rng.Intn(96)),
		}

		if len(targets) > 0 && rng.Float64() < *hotShare {
			// Half-open connection attempts on well-known ports.
			rec.Dst = targets[rng.Intn(len(targets))]
			rec.Protocol = uint8(layers.IPProtocolTCP)
			rec.DstPort = uint16(1 + rng.Intn(1024))
			rec.Length = 40
			rec.Flags = protocol.FlagSYN
		} else {
			switch n := rng.Intn(10); {
			case n < 6:
				rec.Protocol = uint8(layers.IPProtocolTCP)
				rec.DstPort = []uint16{22, 80, 443, 8080}[rng.Intn(4)]
				rec.Flags = []uint16{protocol.FlagSYN, protocol.FlagSYN | protocol.FlagACK, protocol.FlagACK, protocol.FlagRST | protocol.FlagACK}[rng.Intn(4)]
				rec.Length = uint32(40 + rng.Intn(1460))
			case n < 9:
				rec.Protocol = uint8(layers.IPProtocolUDP)
				rec.DstPort = []uint16{53, 123, 161}[rng.Intn(3)]
				rec.Length = uint32(28 + rng.Intn(512))
			default:
				rec.Protocol = uint8(layers.IPProtocolICMPv4)
				rec.SrcPort = 0
				rec.Length = 84
			}
		}

		if err := w.Write(rec); err != nil {
			log.Fatalf("Failed to write record: %v", err)
		}
		if (i+1)%100000 == 0 {
			log.Printf("Generated %d records...", i+1)
		}
	}

	if err := w.Flush(); err != nil {
		log.Fatalf("Failed to flush records: %v", err)
	}
	if err := bw.Flush(); err != nil {
		log.Fatalf("Failed to flush output: %v", err)
	}
	log.Printf("Successfully generated %d records into %s.", *recordCount, *outputFile)
}

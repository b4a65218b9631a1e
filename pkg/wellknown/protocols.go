package wellknown

import (
	"bytes"
	"encoding/csv"
	"io"
	"log"
	"strconv"
	"strings"

	_ "embed"
)

//go:embed protocols.csv
var protocolsData string

// Shorthand is the match an ovs-ofctl protocol keyword expands to.
type Shorthand struct {
	Name    string
	DlType  uint16
	NwProto *uint8
}

var shorthandRegistry map[string]Shorthand

func init() {
	shorthandRegistry = make(map[string]Shorthand)
	reader := csv.NewReader(bytes.NewBufferString(protocolsData))
	reader.TrimLeadingSpace = true
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Fatalf("Failed to read header from embedded protocols.csv: %v", err)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to parse embedded protocols.csv: %v", err)
		}
		if len(record) < 3 {
			continue
		}

		dlType, err := strconv.ParseUint(record[1], 0, 16)
		if err != nil {
			continue
		}
		entry := Shorthand{
			Name:   strings.ToLower(strings.TrimSpace(record[0])),
			DlType: uint16(dlType),
		}
		if proto := strings.TrimSpace(record[2]); proto != "" {
			v, err := strconv.ParseUint(proto, 10, 8)
			if err != nil {
				continue
			}
			p := uint8(v)
			entry.NwProto = &p
		}
		shorthandRegistry[entry.Name] = entry
	}
}

// Lookup returns the match fields implied by a protocol keyword such as "tcp".
func Lookup(name string) (Shorthand, bool) {
	entry, ok := shorthandRegistry[strings.ToLower(name)]
	return entry, ok
}

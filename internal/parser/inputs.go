package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"ryu-ofctl/internal/utils"
)

// ParseMACList reads a CSV file with a "MAC" (or "MAC Address") column and
// returns the normalized addresses in file order. Malformed and repeated
// entries are skipped.
func ParseMACList(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}

	macCol := -1
	for i, col := range header {
		col = strings.TrimSpace(col)
		if strings.EqualFold(col, "MAC") || strings.EqualFold(col, "MAC Address") {
			macCol = i
			break
		}
	}
	if macCol == -1 {
		return nil, fmt.Errorf("could not find 'MAC' column in host file")
	}

	seen := make(map[string]bool)
	var macs []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if macCol >= len(record) {
			continue
		}
		mac, err := utils.NormalizeMAC(record[macCol])
		if err != nil {
			continue // Skip invalid entries
		}
		if seen[mac] {
			continue
		}
		seen[mac] = true
		macs = append(macs, mac)
	}
	return macs, nil
}

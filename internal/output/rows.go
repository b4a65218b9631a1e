package output

import (
	"fmt"
	"sort"
	"strconv"

	"ryu-ofctl/internal/model"
	"ryu-ofctl/pkg/flow"
)

type switchRow flow.DatapathID

func (r switchRow) GetTableHeader() []string { return []string{"DPID", "HEX"} }
func (r switchRow) GetTableRow(_ int) []string {
	d := flow.DatapathID(r)
	return []string{strconv.FormatUint(uint64(d), 10), d.Hex16()}
}

func Switches(dpids []flow.DatapathID) []TableOutput {
	rows := make([]TableOutput, 0, len(dpids))
	for _, d := range dpids {
		rows = append(rows, switchRow(d))
	}
	return rows
}

type linkRow flow.Link

func (r linkRow) GetTableHeader() []string {
	return []string{"SRC-DPID", "SRC-PORT", "DST-DPID", "DST-PORT"}
}

func (r linkRow) GetTableRow(_ int) []string {
	return []string{
		r.Endpoint1.DPID.String(), strconv.FormatUint(uint64(r.Endpoint1.Port), 10),
		r.Endpoint2.DPID.String(), strconv.FormatUint(uint64(r.Endpoint2.Port), 10),
	}
}

func Links(links []flow.Link) []TableOutput {
	rows := make([]TableOutput, 0, len(links))
	for _, l := range links {
		rows = append(rows, linkRow(l))
	}
	return rows
}

type hostRow model.LookupResult

func (r hostRow) GetTableHeader() []string {
	return []string{"MAC", "FOUND", "DPID", "PORT", "ATTRIBUTES"}
}

func (r hostRow) GetTableRow(maxColumnLength int) []string {
	row := []string{r.MAC, strconv.FormatBool(r.Found), "", "", ""}
	if r.Error != "" {
		row[4] = "error: " + r.Error
	}
	if r.Location == nil {
		return row
	}
	row[2] = r.Location.DPID.String()
	row[3] = strconv.FormatUint(uint64(r.Location.Port), 10)
	var attrs []string
	for k, v := range r.Location.Attributes {
		attrs = append(attrs, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(attrs)
	row[4] = GenerateTableElementWithSummary(attrs, maxColumnLength)
	return row
}

func Hosts(results []model.LookupResult) []TableOutput {
	rows := make([]TableOutput, 0, len(results))
	for _, r := range results {
		rows = append(rows, hostRow(r))
	}
	return rows
}

type resultRow model.ApplyResult

func (r resultRow) GetTableHeader() []string {
	return []string{"SOURCE", "DPID", "MODE", "STATUS", "ERROR"}
}

func (r resultRow) GetTableRow(maxColumnLength int) []string {
	status := ""
	if r.StatusCode != 0 {
		status = strconv.Itoa(r.StatusCode)
	}
	errMsg := r.Error
	if len(errMsg) > maxColumnLength {
		errMsg = errMsg[:maxColumnLength] + "..."
	}
	return []string{r.Source, r.DPID.String(), string(r.Mode), status, errMsg}
}

func ApplyResults(results []model.ApplyResult) []TableOutput {
	rows := make([]TableOutput, 0, len(results))
	for _, r := range results {
		rows = append(rows, resultRow(r))
	}
	return rows
}

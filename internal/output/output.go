package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	maxTableOutputColumnLength int = 50
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q, expected table, json or yaml", s)
	}
}

// TableOutput is implemented by every value the CLI prints as a table row.
type TableOutput interface {
	GetTableHeader() []string
	GetTableRow(maxColumnLength int) []string
}

// Write renders obj in format. rows is the table form of obj.
func Write(writer io.Writer, format Format, obj any, rows []TableOutput) error {
	switch format {
	case FormatJSON:
		return JsonOutput(obj, writer)
	case FormatYAML:
		return YamlOutput(obj, writer)
	default:
		return TableOutputForGetCommands(rows, writer)
	}
}

func JsonOutput(obj any, writer io.Writer) error {
	var output bytes.Buffer
	if err := json.NewEncoder(&output).Encode(obj); err != nil {
		return fmt.Errorf("error when encoding data in json: %w", err)
	}

	var prettifiedBuf bytes.Buffer
	if err := json.Indent(&prettifiedBuf, output.Bytes(), "", "  "); err != nil {
		return fmt.Errorf("error when formatting outputing in json: %w", err)
	}
	if _, err := io.Copy(writer, &prettifiedBuf); err != nil {
		return fmt.Errorf("error when outputing in json format: %w", err)
	}
	return nil
}

func YamlOutput(obj any, writer io.Writer) error {
	var jsonObj any
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(obj); err != nil {
		return fmt.Errorf("error when outputing in yaml format: %w", err)
	}
	// Round trip through yaml so numbers keep their integer type.
	if err := yaml.Unmarshal(buf.Bytes(), &jsonObj); err != nil {
		return fmt.Errorf("error when outputing in yaml format: %w", err)
	}
	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)
	if err := enc.Encode(jsonObj); err != nil {
		return fmt.Errorf("error when outputing in yaml format: %w", err)
	}
	return enc.Close()
}

// TableOutputForGetCommands prints list as an aligned table with a header row.
func TableOutputForGetCommands(list []TableOutput, writer io.Writer) error {
	if len(list) == 0 {
		_, err := io.WriteString(writer, "\n")
		return err
	}

	args := list[0].GetTableHeader()
	rows := make([][]string, len(list)+1)
	rows[0] = args
	for i, element := range list {
		rows[i+1] = element.GetTableRow(maxTableOutputColumnLength)
	}

	numRows, numCols := len(list)+1, len(args)
	widths := GetColumnWidths(numRows, numCols, rows)
	return ConstructTable(numRows, numCols, widths, rows, writer)
}

func GetColumnWidths(numRows int, numCols int, rows [][]string) []int {
	widths := make([]int, numCols)
	if numCols == 1 {
		// A single column is never padded.
		widths[0] = 0
		return widths
	}
	for j := 0; j < numCols; j++ {
		width := len(rows[0][j])
		for i := 1; i < numRows; i++ {
			if len(rows[i][j]) == 0 {
				rows[i][j] = "<NONE>"
			}
			if width < len(rows[i][j]) {
				width = len(rows[i][j])
			}
		}
		widths[j] = width
		if j != 0 {
			widths[j]++
		}
	}
	return widths
}

func ConstructTable(numRows int, numCols int, widths []int, rows [][]string, writer io.Writer) error {
	var buffer bytes.Buffer
	for i := 0; i < numRows; i++ {
		for j := 0; j < numCols; j++ {
			val := ""
			if j != 0 {
				val = " " + val
			}
			val += rows[i][j]
			if widths[j] > len(val) {
				val += strings.Repeat(" ", widths[j]-len(val))
			}
			buffer.WriteString(val)
		}
		buffer.WriteString("\n")
	}
	if _, err := io.Copy(writer, &buffer); err != nil {
		return fmt.Errorf("error when copy output into writer: %w", err)
	}
	return nil
}

// GenerateTableElementWithSummary joins list and cuts it down to
// maxColumnLength with a "+ N more..." suffix.
func GenerateTableElementWithSummary(list []string, maxColumnLength int) string {
	element := ""
	for i, val := range list {
		if i != 0 {
			val = "," + val
		}
		if len(element)+len(val) > maxColumnLength {
			return element + fmt.Sprintf(" + %d more...", len(list)-i)
		}
		element += val
	}
	return element
}

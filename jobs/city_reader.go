package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v2"
)

var (
	ErrListNotFound    = errors.New("city name list not found")
	ErrListEndNotFound = errors.New("city name list end not found")
	ErrNoCityNames     = errors.New("no city names parsed")
)

var quotedToken = regexp.MustCompile(`'([^']+)'`)

// ReadCityNames loads the city names from the configured source file.
func ReadCityNames(src sourceConfig) ([]string, error) {
	if src.Format == sourceFormatCSV {
		file, err := os.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open source file: %w", err)
		}
		defer file.Close()
		return ReadCSVCityNames(file, src.CSVSeparator, src.CSVColumn)
	}

	content, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	switch src.Format {
	case sourceFormatJSON:
		return ParseJSONCityNames(content)
	case sourceFormatYAML:
		return ParseYAMLCityNames(content)
	default:
		return ExtractCityNames(string(content), src.ListMarker, src.ListEndMarker)
	}
}

// ExtractCityNames pulls the single-quoted entries out of a list literal that
// starts at listMarker and ends at the first endMarker after it.
func ExtractCityNames(content string, listMarker string, endMarker string) ([]string, error) {
	listStart := strings.Index(content, listMarker)
	if listStart == -1 {
		return nil, fmt.Errorf("%w: marker %q", ErrListNotFound, listMarker)
	}

	listEnd := strings.Index(content[listStart:], endMarker)
	if listEnd == -1 {
		return nil, fmt.Errorf("%w: marker %q", ErrListEndNotFound, endMarker)
	}

	listContent := content[listStart : listStart+listEnd]
	var raw []string
	for _, match := range quotedToken.FindAllStringSubmatch(listContent, -1) {
		raw = append(raw, match[1])
	}
	return cleanNames(raw)
}

// ParseJSONCityNames accepts either a bare array of strings or an object with
// a "cities" array.
func ParseJSONCityNames(content []byte) ([]string, error) {
	if !gjson.ValidBytes(content) {
		return nil, errors.New("source file is not valid JSON")
	}

	list := gjson.ParseBytes(content)
	if !list.IsArray() {
		list = list.Get("cities")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: expected an array or a \"cities\" array", ErrListNotFound)
	}

	var raw []string
	for _, item := range list.Array() {
		if item.Type != gjson.String {
			return nil, fmt.Errorf("city name list contains a non-string value: %s", item.Raw)
		}
		raw = append(raw, item.String())
	}
	return cleanNames(raw)
}

// ParseYAMLCityNames accepts either a sequence of strings or a mapping with a
// "cities" sequence.
func ParseYAMLCityNames(content []byte) ([]string, error) {
	var raw []string
	if err := yaml.Unmarshal(content, &raw); err != nil {
		var doc struct {
			Cities []string `yaml:"cities"`
		}
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML source: %w", err)
		}
		if doc.Cities == nil {
			return nil, fmt.Errorf("%w: expected a sequence or a \"cities\" key", ErrListNotFound)
		}
		raw = doc.Cities
	}
	return cleanNames(raw)
}

// ReadCSVCityNames streams a CSV with a header row and collects the values of
// the named column.
func ReadCSVCityNames(r io.Reader, separator string, column string) ([]string, error) {
	comma, _ := utf8.DecodeRuneInString(separator)
	if comma == utf8.RuneError {
		return nil, fmt.Errorf("invalid CSV separator %q", separator)
	}

	reader := csv.NewReader(r)
	reader.Comma = comma

	// Read header row first
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	columnIndex := -1
	for i, header := range headers {
		if strings.TrimSpace(header) == column {
			columnIndex = i
			break
		}
	}
	if columnIndex == -1 {
		return nil, fmt.Errorf("%w: column %q missing from CSV headers %v", ErrListNotFound, column, headers)
	}

	var raw []string
	rowIndex := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", rowIndex+1, err)
		}
		rowIndex++

		if columnIndex < len(record) {
			raw = append(raw, record[columnIndex])
		}
	}

	slog.Debug("CSV source read", slog.Int("total_rows", rowIndex))
	return cleanNames(raw)
}

// cleanNames trims every entry and drops empty ones. Order and duplicates are
// kept.
func cleanNames(raw []string) ([]string, error) {
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, ErrNoCityNames
	}
	return names, nil
}

// FindDuplicates returns every name that appears more than once, in order of
// first repetition.
func FindDuplicates(names []string) []string {
	seen := make(map[string]int, len(names))
	var duplicates []string
	for _, name := range names {
		seen[name]++
		if seen[name] == 2 {
			duplicates = append(duplicates, name)
		}
	}
	return duplicates
}

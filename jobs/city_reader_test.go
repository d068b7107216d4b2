package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const (
	testListMarker = "const List<String> kCityNames = ["
	testEndMarker  = "];"
)

const appDataSource = `import 'package:flutter/material.dart';

const String kAppName = 'Cities';

const List<String> kCityNames = [
  'Kyiv',
  ' Lviv ',
  'Odesa',
  '   ',
  'Kyiv',
  'Nova Kakhovka',
];

const List<String> kOtherNames = ['Ignored'];
`

func TestExtractCityNames(t *testing.T) {
	names, err := ExtractCityNames(appDataSource, testListMarker, testEndMarker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Kyiv", "Lviv", "Odesa", "Kyiv", "Nova Kakhovka"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %q, want %q", names, want)
	}
}

func TestExtractCityNamesErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"missing marker", "const List<String> kOther = ['a'];", ErrListNotFound},
		{"missing end marker", testListMarker + "'Kyiv', 'Lviv'", ErrListEndNotFound},
		{"end marker only before list", "]; " + testListMarker + "'Kyiv'", ErrListEndNotFound},
		{"empty list", testListMarker + "];", ErrNoCityNames},
		{"only blank tokens", testListMarker + "' ', '  '];", ErrNoCityNames},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractCityNames(tt.content, testListMarker, testEndMarker)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseJSONCityNames(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{"bare array", `["Kyiv", " Lviv ", ""]`, []string{"Kyiv", "Lviv"}, false},
		{"cities key", `{"cities": ["Odesa", "Odesa"]}`, []string{"Odesa", "Odesa"}, false},
		{"no array", `{"names": ["Kyiv"]}`, nil, true},
		{"non-string value", `["Kyiv", 3]`, nil, true},
		{"invalid json", `["Kyiv"`, nil, true},
		{"empty array", `[]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONCityNames([]byte(tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("names = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseYAMLCityNames(t *testing.T) {
	got, err := ParseYAMLCityNames([]byte("- Kyiv\n- ' Lviv '\n"))
	if err != nil {
		t.Fatalf("sequence: %v", err)
	}
	if want := []string{"Kyiv", "Lviv"}; !reflect.DeepEqual(got, want) {
		t.Errorf("sequence names = %q, want %q", got, want)
	}

	got, err = ParseYAMLCityNames([]byte("cities:\n  - Odesa\n"))
	if err != nil {
		t.Fatalf("cities key: %v", err)
	}
	if want := []string{"Odesa"}; !reflect.DeepEqual(got, want) {
		t.Errorf("cities key names = %q, want %q", got, want)
	}

	if _, err := ParseYAMLCityNames([]byte("names:\n  - Odesa\n")); !errors.Is(err, ErrListNotFound) {
		t.Errorf("expected ErrListNotFound, got %v", err)
	}
}

func TestReadCSVCityNames(t *testing.T) {
	content := "country;city;population\nUA;Kyiv;2952301\nUA; Lviv ;717273\nUA;;0\n"

	got, err := ReadCSVCityNames(strings.NewReader(content), ";", "city")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"Kyiv", "Lviv"}; !reflect.DeepEqual(got, want) {
		t.Errorf("names = %q, want %q", got, want)
	}

	if _, err := ReadCSVCityNames(strings.NewReader(content), ";", "name"); !errors.Is(err, ErrListNotFound) {
		t.Errorf("expected ErrListNotFound for missing column, got %v", err)
	}
}

func TestReadCSVCityNamesMultiByteSeparator(t *testing.T) {
	content := "country§city\nUA§Kyiv\nUA§Kherson\n"

	got, err := ReadCSVCityNames(strings.NewReader(content), "§", "city")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"Kyiv", "Kherson"}; !reflect.DeepEqual(got, want) {
		t.Errorf("names = %q, want %q", got, want)
	}

	if _, err := ReadCSVCityNames(strings.NewReader(content), "\xff", "city"); err == nil {
		t.Error("expected error for an invalid separator")
	}
}

func TestReadCityNamesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app_data.dart")
	if err := os.WriteFile(path, []byte(appDataSource), 0o600); err != nil {
		t.Fatal(err)
	}

	src := defaultConfig().Source
	src.Path = path

	names, err := ReadCityNames(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 5 {
		t.Errorf("got %d names, want 5", len(names))
	}

	src.Path = filepath.Join(dir, "missing.dart")
	if _, err := ReadCityNames(src); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestFindDuplicates(t *testing.T) {
	got := FindDuplicates([]string{"Kyiv", "Lviv", "Kyiv", "Odesa", "Kyiv", "Lviv"})
	if want := []string{"Kyiv", "Lviv"}; !reflect.DeepEqual(got, want) {
		t.Errorf("duplicates = %q, want %q", got, want)
	}
	if got := FindDuplicates([]string{"Kyiv", "Lviv"}); len(got) != 0 {
		t.Errorf("expected no duplicates, got %q", got)
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDemoTextReport(t *testing.T) {
	var buf bytes.Buffer
	if err := run(context.Background(), []string{"-demo"}, &buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Demo", "Saturn", "square", "stellium (Capricorn)", "Moon phase: First Quarter"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDemoJSONWithSolarReturn(t *testing.T) {
	var buf bytes.Buffer
	err := run(context.Background(), []string{"-demo", "-format", "json", "-solar-return", "1995", "-transits", "1990-06-16T14:30:00Z"}, &buf)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var got struct {
		Natal struct {
			Aspects []json.RawMessage `json:"aspects"`
		} `json:"natal"`
		Transits struct {
			Moment string `json:"moment"`
		} `json:"transits"`
		SolarReturn struct {
			Year int `json:"year"`
		} `json:"solar_return"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got.Natal.Aspects) == 0 || got.SolarReturn.Year != 1995 || got.Transits.Moment != "1990-06-16T14:30:00Z" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestDemoYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := run(context.Background(), []string{"-demo", "-format", "yaml"}, &buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if _, ok := got["natal"]; !ok {
		t.Fatalf("yaml keys = %v, want natal", got)
	}
}

func TestFlagValidation(t *testing.T) {
	tests := [][]string{
		{},
		{"-demo", "-format", "xml"},
		{"-demo", "-house", "placidus"},
		{"-demo", "-unknown-motion", "sideways"},
		{"-demo", "-orb", "60"},
		{"-date", "1990-13-40"},
	}
	for _, args := range tests {
		if err := run(context.Background(), args, io.Discard); err == nil {
			t.Fatalf("run(%v) succeeded, want error", args)
		}
	}
}

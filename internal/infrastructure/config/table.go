package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
)

// ErrUnsupportedTable is returned for table files with an unknown extension.
var ErrUnsupportedTable = errors.New("unsupported device table format")

// DeviceTable is the on-disk description of a device and its aliases.
type DeviceTable struct {
	Name      string             `yaml:"name" toml:"name"`
	Capacity  int                `yaml:"capacity" toml:"capacity"`
	Endpoints []chardev.Endpoint `yaml:"endpoints" toml:"endpoints"`
}

// LoadDeviceTable reads a YAML (.yaml, .yml) or TOML (.toml) device table.
func LoadDeviceTable(path string) (*DeviceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device table: %w", err)
	}

	var table DeviceTable
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &table)
	case ".toml":
		err = toml.Unmarshal(data, &table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTable, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse device table %s: %w", path, err)
	}

	if len(table.Endpoints) == 0 {
		return nil, fmt.Errorf("device table %s lists no endpoints", path)
	}
	return &table, nil
}

// ResolveDevice returns the device options described by the config,
// preferring the table file when one is set. Fields the table leaves
// empty fall back to the environment values.
func (d DeviceConfig) ResolveDevice() (chardev.Options, error) {
	opts := chardev.Options{
		Name:      d.Name,
		Capacity:  d.Capacity,
		Endpoints: d.DeviceEndpoints(),
	}
	if d.Table == "" {
		return opts, nil
	}

	table, err := LoadDeviceTable(d.Table)
	if err != nil {
		return chardev.Options{}, err
	}
	if table.Name != "" {
		opts.Name = table.Name
	}
	if table.Capacity > 0 {
		opts.Capacity = table.Capacity
	}
	opts.Endpoints = table.Endpoints
	return opts, nil
}

// Package config defines the data structures related to configuration and
// includes functions for loading and converting a mortgage plan.
package config

import (
	"fmt"
	"io"

	"github.com/spf13/viper"
)

// Configuration holds all configuration for mortgage-forecast.
type Configuration struct {
	Logging  LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
	Output   OutputConfig  `yaml:"output,omitempty" json:"output,omitempty"`
	Loan     Loan          `yaml:"loan" json:"loan"`
	Expenses Expenses      `yaml:"expenses" json:"expenses"`
	Events   []EventConfig `yaml:"events,omitempty" json:"events,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" json:"level,omitempty"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" json:"format,omitempty"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" json:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" json:"format,omitempty"` // pretty, csv
}

// Loan holds the loan as originated.
type Loan struct {
	Principal float64 `yaml:"principal" json:"principal"`
	Rate      float64 `yaml:"rate" json:"rate"` // annual percent, e.g. 4.75
	Term      int     `yaml:"term" json:"term"` // years
	StartYear int     `yaml:"startYear,omitempty" json:"startYear,omitempty"`
}

// Expenses holds the annual costs carried alongside the mortgage payment.
type Expenses struct {
	PropertyTax float64 `yaml:"propertyTax,omitempty" json:"propertyTax,omitempty"`
	Insurance   float64 `yaml:"insurance,omitempty" json:"insurance,omitempty"`
}

// EventConfig indicates a rate change or lump sum payment in a given loan year.
type EventConfig struct {
	Type   string  `yaml:"type" json:"type"` // rate, lumpSum
	Year   int     `yaml:"year" json:"year"`
	Rate   float64 `yaml:"rate,omitempty" json:"rate,omitempty"`
	Amount float64 `yaml:"amount,omitempty" json:"amount,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()

	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %w", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	return &configuration, nil
}

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".lldwarf"
	configFile string = "config.yml"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// AddressSize is the address size used by the ranges, loclist and
	// aranges commands when it is not specified on the command line.
	AddressSize *int `yaml:"address-size,omitempty"`

	// Recurse is the default for the --recurse flag of the die and info
	// commands.
	Recurse *bool `yaml:"recurse,omitempty"`

	// Color is one of auto, always or never.
	Color string `yaml:"color,omitempty"`

	// AbbrevCacheSize is the number of abbreviation tables kept while
	// walking .debug_info.
	AbbrevCacheSize int `yaml:"abbrev-cache-size,omitempty"`

	// Log is the comma separated list of components that log when --log
	// is passed without --log-output.
	Log []string `yaml:"log,omitempty"`
}

// DefaultAddressSize returns the configured address size, 8 if unset.
func (c *Config) DefaultAddressSize() int {
	if c.AddressSize == nil {
		return 8
	}
	return *c.AddressSize
}

// DefaultRecurse returns the configured default for recursion, true if
// unset.
func (c *Config) DefaultRecurse() bool {
	if c.Recurse == nil {
		return true
	}
	return *c.Recurse
}

// ColorMode returns the configured color mode.
func (c *Config) ColorMode() string {
	switch c.Color {
	case ColorAlways, ColorNever:
		return c.Color
	}
	return ColorAuto
}

// LogComponents returns the configured log components in the format
// accepted by logflags.Setup.
func (c *Config) LogComponents() string {
	return strings.Join(c.Log, ",")
}

// LoadConfig attempts to populate a Config object from the config.yml file.
// Errors are reported on stderr and the default configuration is returned.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not create config directory: %v.\n", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to get config file path: %v.\n", err)
		return &Config{}
	}
	c, err := LoadConfigFrom(fullConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v.\n", err)
		return &Config{}
	}
	return c
}

// LoadConfigFrom reads the configuration stored at path. If the file does
// not exist it is created with the default contents.
func LoadConfigFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		f, err = createDefaultConfig(path)
		if err != nil {
			return nil, fmt.Errorf("error creating default config file: %v", err)
		}
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %v", err)
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config file: %v", err)
	}
	return &c, nil
}

// SaveConfig will marshal and save the config struct
// to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}
	return SaveConfigTo(fullConfigFile, conf)
}

// SaveConfigTo marshals conf and writes it to path.
func SaveConfigTo(path string, conf *Config) error {
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	if err := ioutil.WriteFile(path, []byte(defaultConfig), 0600); err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	return os.Open(path)
}

const defaultConfig = `# Configuration file for lldwarf.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Address size used by the ranges, loclist and aranges commands when
# --address-size is not passed.
# address-size: 8

# Parse the children of entries by default in the die and info commands.
# recurse: true

# Colored output: auto, always or never.
# color: auto

# Number of abbreviation tables cached while walking .debug_info.
# abbrev-cache-size: 64

# Components that log when --log is passed without --log-output.
# log: [info, line]
`

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir, file), nil
}

package config

import (
	"flag"
	"io"
)

// Flags command-line options.
type Flags struct {
	ConfigPath string
	Setup      bool
}

// ParseFlags parses args (without the program name).
func ParseFlags(args []string, output io.Writer) (Flags, error) {
	fs := flag.NewFlagSet("kxmarket", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}

	var f Flags
	fs.StringVar(&f.ConfigPath, "config", "", "path to yaml config")
	fs.BoolVar(&f.Setup, "setup", false, "run interactive setup and write a yaml config")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}

// Get parses flags and loads the config they point at. Without --config defaults apply.
func Get(args []string, output io.Writer) (Flags, Config, error) {
	f, err := ParseFlags(args, output)
	if err != nil {
		return Flags{}, Config{}, err
	}
	if f.ConfigPath == "" {
		return f, Default(), nil
	}
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return Flags{}, Config{}, err
	}
	return f, cfg, nil
}

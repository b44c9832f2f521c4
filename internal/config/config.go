// Package config provides the zipcrack options, read from command-line
// flags, environment variables and an optional TOML file.
//
// Precedence, lowest first: built-in defaults, the TOML file, environment
// variables, flags given on the command line.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"zipcrack/internal/candidate"
)

// Options holds the configuration values for one run.
type Options struct {
	// File is the encrypted archive to recover the password of.
	File string `toml:"file"`

	// Mode is "brute" or "dict".
	Mode string `toml:"mode"`

	// Dict is the word list for dictionary mode, "-" for stdin.
	Dict string `toml:"dict"`

	// Chars names a charset preset for brute-force mode.
	Chars string `toml:"chars"`

	// Alphabet, when set, overrides Chars.
	Alphabet string `toml:"alphabet"`

	// MinLen and Len bound the brute-force candidate length.
	MinLen int `toml:"min_len"`
	Len    int `toml:"len"`

	// Workers is the number of concurrent verifiers; 1 searches sequentially.
	Workers int `toml:"workers"`

	// Extract is a directory to unpack the archive into once found.
	Extract string `toml:"extract"`

	Progress bool          `toml:"progress"`
	Stats    time.Duration `toml:"stats"`
	LogLevel string        `toml:"log_level"`

	// ReportCSV and ReportDSN record the run result when set.
	ReportCSV string `toml:"report_csv"`
	ReportDSN string `toml:"report_dsn"`

	// Config is the path to the TOML file.
	Config string `toml:"-"`

	// Version asks for build information only.
	Version bool `toml:"-"`
}

// Defaults mirror the original tool: lowercase letters up to four characters.
func Defaults() Options {
	return Options{
		Mode:     "brute",
		Chars:    "lower",
		MinLen:   1,
		Len:      4,
		Workers:  1,
		Progress: true,
		LogLevel: "info",
	}
}

func newFlagSet(o *Options, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("zipcrack", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&o.File, "file", o.File, "path to the encrypted zip archive")
	fs.StringVar(&o.Mode, "mode", o.Mode, "brute or dict")
	fs.StringVar(&o.Dict, "dict", o.Dict, "word list for dict mode (- reads stdin)")
	fs.StringVar(&o.Chars, "chars", o.Chars, "charset: digits, lower, upper, mixed, special, all")
	fs.StringVar(&o.Alphabet, "alphabet", o.Alphabet, "explicit alphabet, overrides -chars")
	fs.IntVar(&o.MinLen, "min-len", o.MinLen, "minimum password length for brute mode")
	fs.IntVar(&o.Len, "len", o.Len, "maximum password length for brute mode")
	fs.IntVar(&o.Workers, "workers", o.Workers, "number of concurrent verifiers")
	fs.StringVar(&o.Extract, "extract", o.Extract, "extract the archive into this directory once the password is found")
	fs.BoolVar(&o.Progress, "progress", o.Progress, "show a progress bar")
	fs.DurationVar(&o.Stats, "stats", o.Stats, "log search statistics at this interval (0 disables)")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "debug, info, warn or error")
	fs.StringVar(&o.ReportCSV, "report-csv", o.ReportCSV, "append the run result to this CSV file")
	fs.StringVar(&o.ReportDSN, "report-dsn", o.ReportDSN, "PostgreSQL DSN to record the run result")
	fs.StringVar(&o.Config, "config", o.Config, "path to a TOML config file")
	fs.StringVar(&o.Config, "c", o.Config, "path to a TOML config file (shorthand)")
	fs.BoolVar(&o.Version, "version", o.Version, "show build version and exit")
	return fs
}

// Parse builds the options from args (without the program name) and the
// environment lookup getenv. It returns flag.ErrHelp when -h is given.
func Parse(args []string, getenv func(string) string, output io.Writer) (*Options, error) {
	// First pass only finds the config file.
	probe := Defaults()
	if err := newFlagSet(&probe, output).Parse(args); err != nil {
		return nil, err
	}
	path := probe.Config
	if path == "" {
		path = getenv("ZIPCRACK_CONFIG")
	}

	opts := Defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, &opts); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		opts.Config = path
	}
	if err := applyEnv(&opts, getenv); err != nil {
		return nil, err
	}

	// Second pass: flags given explicitly override everything else.
	if err := newFlagSet(&opts, io.Discard).Parse(args); err != nil {
		return nil, err
	}
	return &opts, nil
}

func applyEnv(o *Options, getenv func(string) string) error {
	strs := map[string]*string{
		"ZIPCRACK_FILE":       &o.File,
		"ZIPCRACK_MODE":       &o.Mode,
		"ZIPCRACK_DICT":       &o.Dict,
		"ZIPCRACK_CHARS":      &o.Chars,
		"ZIPCRACK_ALPHABET":   &o.Alphabet,
		"ZIPCRACK_LOG_LEVEL":  &o.LogLevel,
		"ZIPCRACK_REPORT_DSN": &o.ReportDSN,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"ZIPCRACK_LEN":     &o.Len,
		"ZIPCRACK_WORKERS": &o.Workers,
	}
	for key, dst := range ints {
		v := getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks usage errors. Search parameters such as mode, word list
// and lengths are checked by the search itself.
func (o *Options) Validate() error {
	if o.File == "" {
		return errors.New("please provide -file=archive.zip")
	}
	if o.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", o.Workers)
	}
	return nil
}

// ResolveAlphabet returns the explicit alphabet or the named charset.
func (o *Options) ResolveAlphabet() (string, error) {
	if o.Alphabet != "" {
		return o.Alphabet, nil
	}
	return candidate.Charset(o.Chars)
}

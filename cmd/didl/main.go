// didl inspects and converts DIDL messages.
//
// Messages are read from a file argument or stdin, as hex text by default or as raw bytes with --format binary.
//
//	didl hash LABEL...        print the field ids of labels
//	didl dump [FILE]          print the types and values of a message
//	didl cbor [FILE]          convert the values of a message to a CBOR array (--diag for diagnostic notation)
//	didl pack [FILE]          wrap a message in a checksummed, optionally compressed frame
//	didl unpack [FILE]        verify and unwrap a framed message
//	didl version              print the version
//
// Settings can also come from a YAML file given with --config; flags take precedence.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/stewi1014/didl"
	"github.com/stewi1014/didl/frame"
	"github.com/stewi1014/didl/idl"
	"github.com/stewi1014/didl/transcode"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// settings is the YAML configuration file.
type settings struct {
	Format      string    `yaml:"format"`
	Compression frame.Tag `yaml:"compression"`
	MaxLength   uint64    `yaml:"max_length"`
	Debug       bool      `yaml:"debug"`
}

func loadSettings(path string) (settings, error) {
	s := settings{Format: "hex"}
	if path == "" {
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return s, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return s, fmt.Errorf("parse config %v: %w", path, err)
	}
	return s, nil
}

type command struct {
	settings settings
	diag     bool
	config   *didl.Config
	stdin    io.Reader
	stdout   io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		configPath  string
		format      string
		compression string
		maxLength   uint64
		debug       bool
		diag        bool
	)

	flagSet := pflag.NewFlagSet("didl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "YAML file to read settings from")
	flagSet.StringVar(&format, "format", "hex", "encoding of input and output bytes: hex or binary")
	flagSet.StringVar(&compression, "compression", "none", "frame compression for pack: none, lz4 or zstd")
	flagSet.Uint64Var(&maxLength, "max-length", 0, "largest length or count accepted from a message (0 for the default)")
	flagSet.BoolVar(&debug, "debug", false, "log decoding details to stderr")
	flagSet.BoolVar(&diag, "diag", false, "write CBOR diagnostic notation instead of bytes")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	s, err := loadSettings(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("format") || s.Format == "" {
		s.Format = format
	}
	if flagSet.Changed("compression") {
		if s.Compression, err = frame.ParseTag(compression); err != nil {
			return err
		}
	}
	if flagSet.Changed("max-length") {
		s.MaxLength = maxLength
	}
	if flagSet.Changed("debug") {
		s.Debug = debug
	}
	if s.Format != "hex" && s.Format != "binary" {
		return fmt.Errorf("unknown format %q", s.Format)
	}

	level := slog.LevelWarn
	if s.Debug {
		level = slog.LevelDebug
	}
	c := &command{
		settings: s,
		diag:     diag,
		config: &didl.Config{
			Logger:      slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
			MaxLength:   s.MaxLength,
			Compression: s.Compression,
		},
		stdin:  stdin,
		stdout: stdout,
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return errors.New("missing command; one of hash, dump, cbor, pack, unpack, version")
	}
	switch name, rest := rest[0], rest[1:]; name {
	case "hash":
		return c.hash(rest)
	case "dump":
		return c.dump(rest)
	case "cbor":
		return c.cbor(rest)
	case "pack":
		return c.pack(rest)
	case "unpack":
		return c.unpack(rest)
	case "version":
		_, err := fmt.Fprintf(stdout, "didl %v\n", version)
		return err
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (c *command) hash(labels []string) error {
	if len(labels) == 0 {
		return errors.New("hash needs at least one label")
	}
	for _, label := range labels {
		if _, err := fmt.Fprintf(c.stdout, "%d\t%v\n", idl.LabelID(label), label); err != nil {
			return err
		}
	}
	return nil
}

func (c *command) dump(args []string) error {
	values, err := c.decode(args)
	if err != nil {
		return err
	}
	for _, v := range values {
		if _, err := fmt.Fprintf(c.stdout, "%v: %v\n", v.Type, idl.FormatValue(v.Type, v.Value)); err != nil {
			return err
		}
	}
	return nil
}

func (c *command) cbor(args []string) error {
	values, err := c.decode(args)
	if err != nil {
		return err
	}

	types := make([]*idl.Type, len(values))
	anys := make([]any, len(values))
	for i, v := range values {
		types[i], anys[i] = v.Type, v.Value
	}
	data, err := transcode.MarshalAll(types, anys)
	if err != nil {
		return err
	}

	if c.diag {
		notation, err := transcode.Diagnose(data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.stdout, notation)
		return err
	}
	return c.output(data)
}

func (c *command) pack(args []string) error {
	msg, err := c.input(args)
	if err != nil {
		return err
	}
	if _, err := c.config.DecodeTypes(msg); err != nil {
		return fmt.Errorf("not a DIDL message: %w", err)
	}

	packed, err := frame.Pack(msg, c.settings.Compression)
	if err != nil {
		return err
	}
	return c.output(packed)
}

func (c *command) unpack(args []string) error {
	data, err := c.input(args)
	if err != nil {
		return err
	}
	msg, err := frame.Unpack(data)
	if err != nil {
		return err
	}
	return c.output(msg)
}

func (c *command) decode(args []string) ([]idl.Decoded, error) {
	msg, err := c.input(args)
	if err != nil {
		return nil, err
	}
	return c.config.DecodeUnknown(msg)
}

func (c *command) input(args []string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch len(args) {
	case 0:
		data, err = io.ReadAll(c.stdin)
	case 1:
		data, err = os.ReadFile(args[0])
	default:
		return nil, fmt.Errorf("unexpected argument %q", args[1])
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if c.settings.Format == "hex" {
		text := strings.Join(strings.Fields(string(data)), "")
		if data, err = hex.DecodeString(text); err != nil {
			return nil, fmt.Errorf("decode hex input: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}
	return data, nil
}

func (c *command) output(data []byte) error {
	if c.settings.Format == "hex" {
		_, err := fmt.Fprintln(c.stdout, hex.EncodeToString(data))
		return err
	}
	_, err := c.stdout.Write(data)
	return err
}

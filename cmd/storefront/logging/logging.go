package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options controls where and how the service logs.
type Options struct {
	Level  string
	Pretty bool   // console writer instead of JSON
	Dir    string // when set, logs are also written to a file in Dir
	Out    io.Writer
}

// Output owns the log destination; Close releases the log file, if any.
type Output struct {
	log  zerolog.Logger
	file *os.File
	path string
}

// New creates the service logger. With a Dir, every line goes to stdout and
// to <Dir>/storefront_<timestamp>.log.
func New(opts Options) (*Output, error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	var console io.Writer = out
	if opts.Pretty {
		console = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = out
			w.TimeFormat = time.Kitchen
		})
	}

	o := &Output{}
	writer := console
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		o.path = filepath.Join(opts.Dir, fmt.Sprintf("storefront_%s.log", time.Now().Format("20060102_150405")))
		o.file, err = os.Create(o.path)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		writer = zerolog.MultiLevelWriter(console, o.file)
	}

	o.log = zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	return o, nil
}

func (o *Output) Logger() zerolog.Logger {
	return o.log
}

// Path returns the log file path, or "" when logging to stdout only.
func (o *Output) Path() string {
	return o.path
}

func (o *Output) Close() error {
	if o.file == nil {
		return nil
	}
	return o.file.Close()
}

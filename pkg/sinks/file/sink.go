package file

import (
	"fmt"
	"os"

	"github.com/lawrencejones/convsink/pkg/serialize"
	"github.com/lawrencejones/convsink/pkg/sink"

	"github.com/alecthomas/kingpin"
	kitlog "github.com/go-kit/kit/log"
	"github.com/pkg/errors"
)

type Options struct {
	Path       string
	Format     string
	BufferSize int
	Instrument bool
}

func (opt *Options) Bind(cmd *kingpin.CmdClause, prefix string) *Options {
	cmd.Flag(fmt.Sprintf("%spath", prefix), "File path for converted values").Default("/dev/stdout").StringVar(&opt.Path)
	cmd.Flag(fmt.Sprintf("%sformat", prefix), "Serialization format for converted values").Default("json").EnumVar(&opt.Format, serialize.Formats...)
	cmd.Flag(fmt.Sprintf("%sbuffer-size", prefix), "Number of values to buffer before flushing").Default("5").IntVar(&opt.BufferSize)
	cmd.Flag(fmt.Sprintf("%sinstrument", prefix), "Enable instrumentation").Default("true").BoolVar(&opt.Instrument)

	return opt
}

// New opens the configured file, returning a sink that serializes each value onto its
// own line. Values are buffered and written in batches.
func New(logger kitlog.Logger, opts Options) (sink.Sink[interface{}], error) {
	serializer, err := serialize.ForName(opts.Format)
	if err != nil {
		return nil, err
	}

	file, err := openFile(opts.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", opts.Path)
	}

	var result sink.Sink[interface{}] = sink.NewBufferedSink[interface{}](
		NewWriter(logger, file, serializer), opts.BufferSize,
	)
	if opts.Instrument {
		result = sink.Instrument(logger, "file", result)
	}

	return result, nil
}

func openFile(path string) (*os.File, error) {
	switch path {
	case "/dev/stdout":
		return os.Stdout, nil
	case "/dev/stderr":
		return os.Stderr, nil
	}

	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/lawrencejones/convsink/pkg/codec/charset"
	"github.com/lawrencejones/convsink/pkg/codec/jsonconv"
	"github.com/lawrencejones/convsink/pkg/codec/lineconv"
	"github.com/lawrencejones/convsink/pkg/codec/utf8conv"
	"github.com/lawrencejones/convsink/pkg/convert"
	"github.com/lawrencejones/convsink/pkg/driver"
	"github.com/lawrencejones/convsink/pkg/sink"

	kitlog "github.com/go-kit/kit/log"
	"github.com/pkg/errors"
)

// pipeline is a task that has been scheduled, along with what to do once it completes.
type pipeline struct {
	task   driver.Runnable
	finish func(context.Context) error
}

type pipelineOptions struct {
	Format         string
	Charset        string
	AllowMalformed bool
	UseNumber      bool
	Driver         driver.Options
}

// buildTextDecoder picks the decoder for turning input bytes into text. UTF-8 gets our
// own decoder while anything else goes via the x/text charset tables. Both are strict
// about malformed input unless told otherwise.
func buildTextDecoder(opts pipelineOptions) (convert.Converter[[]byte, string], error) {
	if opts.Charset == "" || strings.EqualFold(opts.Charset, "utf-8") || strings.EqualFold(opts.Charset, "utf8") {
		return utf8conv.Decoder{AllowMalformed: opts.AllowMalformed}, nil
	}

	decoder, err := charset.Lookup(opts.Charset)
	if err != nil {
		return nil, UsageError{err}
	}

	decoder.AllowMalformed = opts.AllowMalformed
	return decoder, nil
}

// buildPipeline assembles the converter for the requested format, returning a task that
// converts input into output. Every format except text streams its values into output
// as they are produced.
func buildPipeline(logger kitlog.Logger, opts pipelineOptions, input []byte, output sink.Sink[interface{}]) (*pipeline, error) {
	text, err := buildTextDecoder(opts)
	if err != nil {
		return nil, err
	}

	bytes := convert.Fuse[[]byte, string, []byte](text, utf8conv.Encoder{})

	switch opts.Format {
	case "json":
		return stream(logger, convert.Fuse[[]byte, []byte, any](bytes, jsonconv.Decoder{UseNumber: opts.UseNumber}), input, output, opts.Driver), nil
	case "json-stream":
		return stream(logger, convert.FuseSequence[[]byte, []byte, any](bytes, jsonconv.StreamDecoder{UseNumber: opts.UseNumber}), input, output, opts.Driver), nil
	case "lines":
		return stream(logger, convert.FuseSequence[[]byte, string, string](text, lineconv.Splitter{}), input, output, opts.Driver), nil
	case "text":
		// Decoded text arrives in pieces that follow our chunk boundaries, which we join
		// so the output never depends on chunk size.
		task := driver.NewTask[[]byte, string](logger, text, input, opts.Driver)
		return &pipeline{
			task: task,
			finish: func(ctx context.Context) error {
				pieces, err := task.Result().Get(ctx)
				if err != nil {
					if addErr := output.AddError(err); addErr != nil {
						logger.Log("event", "output.add_error", "error", errors.Wrap(addErr, "reporting failure to output"))
					}

					return err
				}
				if err := output.Add(strings.Join(pieces, "")); err != nil {
					return err
				}

				return output.Close()
			},
		}, nil
	}

	return nil, UsageError{fmt.Errorf("unsupported format: %s", opts.Format)}
}

func stream[Out any](logger kitlog.Logger, converter convert.ChunkedConverter[[]byte, Out], input []byte, output sink.Sink[interface{}], opts driver.Options) *pipeline {
	task := driver.NewTask[[]byte, Out](logger, converter, input, opts).Forward(widen[Out]{output})

	return &pipeline{
		task: task,
		finish: func(ctx context.Context) error {
			_, err := task.Result().Get(ctx)
			return err
		},
	}
}

// widen lets a sink of interface{} receive values of a concrete type.
type widen[T any] struct {
	sink.Sink[interface{}]
}

func (w widen[T]) Add(value T) error {
	return w.Sink.Add(value)
}

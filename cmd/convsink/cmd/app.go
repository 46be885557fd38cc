package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	stdlog "log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawrencejones/convsink/pkg/driver"
	"github.com/lawrencejones/convsink/pkg/sink"
	sinkfile "github.com/lawrencejones/convsink/pkg/sinks/file"

	"contrib.go.opencensus.io/exporter/jaeger"
	"github.com/alecthomas/kingpin"
	"github.com/davecgh/go-spew/spew"
	kitlog "github.com/go-kit/kit/log"
	level "github.com/go-kit/kit/log/level"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opencensus.io/trace"
)

var logger kitlog.Logger

var (
	app = kingpin.New("convsink", "Convert data incrementally, in time-budgeted chunks").Version(versionStanza())

	// Global flags
	debug               = app.Flag("debug", "Enable debug logging").Default("false").Bool()
	metricsAddress      = app.Flag("metrics-address", "Address to bind HTTP metrics listener").Default("127.0.0.1").String()
	metricsPort         = app.Flag("metrics-port", "Port to bind HTTP metrics listener").Default("9525").Uint16()
	jaegerAgentEndpoint = app.Flag("jaeger-agent-endpoint", "Endpoint for Jaeger agent, tracing is disabled if empty").Default("").String()

	convertCmd            = app.Command("convert", "Convert a file, writing each value produced to the output")
	convertInput          = convertCmd.Flag("input", "Path to the input file").Required().ExistingFile()
	convertFormat         = convertCmd.Flag("format", "Format of the input").Default("json").Enum("json", "json-stream", "lines", "text")
	convertCharset        = convertCmd.Flag("charset", "Character encoding of the input").Default("utf-8").String()
	convertAllowMalformed = convertCmd.Flag("allow-malformed", "Replace malformed input with U+FFFD rather than failing").Default("false").Bool()
	convertUseNumber      = convertCmd.Flag("use-number", "Decode JSON numbers without loss of precision").Default("false").Bool()
	convertDump           = convertCmd.Flag("dump", "Dump values produced by the conversion, ignoring output").Default("false").Bool()

	convertDriverOptions = new(driver.Options).Bind(convertCmd, "")
	convertOutputOptions = new(sinkfile.Options).Bind(convertCmd, "output.")
)

// SilentError should be returned when the command wants to skip all logging of the error
// it has encountered. It wraps no error content as we should never inspect it.
var SilentError = errors.New("silent error")

type UsageError struct {
	error
}

func Run() (err error) {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, level.AllowInfo())
	if *debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	}
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.DefaultCaller)
	stdlog.SetOutput(kitlog.NewStdlibAdapter(logger))

	// Setup an error handler to log and print usage
	defer func() {
		var usageErr UsageError
		switch {
		// Do nothing if no error
		case err == nil:
			return
		// Suppress silent errors
		case errors.Is(err, SilentError):
			return
		// If we're a usage error, unwrap it and print out usage before returning
		case errors.As(err, &usageErr):
			context, _ := app.ParseContext(os.Args[1:])
			app.UsageForContext(context)
			fmt.Fprintf(os.Stderr, "error: %s\n", usageErr.Error())

			err = usageErr.error
			return
		// Otherwise we probably want to log our error
		default:
			logger.Log("event", "error", "error", err, "msg", "exiting with error")
		}
	}()

	// This is the root context for the application. Once terminated, everything we have
	// started should also finish.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stage our shutdown to first request termination, then cancel contexts if the
	// scheduler hasn't responded.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	shutdown := make(chan struct{})

	go func() {
		<-sigc
		close(shutdown)
		select {
		case <-time.After(30 * time.Second):
		case <-sigc:
		}
		cancel()
	}()

	var g run.Group

	{
		logger := kitlog.With(logger, "component", "shutdown_handler")

		ctx, cancel := context.WithCancel(ctx)

		// If we're asked to shutdown, we use the rungroup to trigger interrupts for every
		// component
		g.Add(
			func() error {
				select {
				case <-shutdown:
					logger.Log("event", "requesting_shutdown", "msg", "received signal, requesting shutdown")
				case <-ctx.Done():
				}

				return nil
			},
			func(error) {
				cancel() // end the shutdown select
			},
		)
	}

	{
		logger := kitlog.With(logger, "component", "metrics")

		// Metrics and debug endpoints
		mux := http.NewServeMux()

		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

		srv := &http.Server{Addr: fmt.Sprintf("%s:%d", *metricsAddress, *metricsPort), Handler: mux}

		g.Add(
			func() error {
				logger.Log("event", "listen", "address", *metricsAddress, "port", *metricsPort)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}

				return nil
			},
			func(error) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			},
		)
	}

	if *jaegerAgentEndpoint != "" {
		// Tracing with jaeger
		jexporter, err := jaeger.NewExporter(jaeger.Options{
			AgentEndpoint: *jaegerAgentEndpoint,
			Process: jaeger.Process{
				ServiceName: "convsink",
			},
		})

		if err != nil {
			return UsageError{err}
		}

		defer jexporter.Flush()

		trace.RegisterExporter(jexporter)
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})
	}

	switch command {
	case convertCmd.FullCommand():
		input, err := ioutil.ReadFile(*convertInput)
		if err != nil {
			return UsageError{fmt.Errorf("failed to read input: %w", err)}
		}

		var output sink.Sink[interface{}]
		if *convertDump {
			output = sink.WithCallback(func(values []interface{}) {
				spew.Dump(values)
			})
		} else {
			output, err = sinkfile.New(kitlog.With(logger, "component", "output"), *convertOutputOptions)
			if err != nil {
				return err
			}
		}

		conversion, err := buildPipeline(
			kitlog.With(logger, "component", "task"),
			pipelineOptions{
				Format:         *convertFormat,
				Charset:        *convertCharset,
				AllowMalformed: *convertAllowMalformed,
				UseNumber:      *convertUseNumber,
				Driver:         *convertDriverOptions,
			},
			input,
			output,
		)
		if err != nil {
			return err
		}

		scheduler := driver.NewScheduler(kitlog.With(logger, "component", "scheduler"))
		scheduler.Schedule(conversion.task)

		g.Add(
			func() error {
				if err := scheduler.Run(ctx); err != nil {
					return err
				}

				return conversion.finish(ctx)
			},
			func(error) {
				cancel()
			},
		)

		return g.Run()
	}

	return UsageError{fmt.Errorf("unsupported command")}
}

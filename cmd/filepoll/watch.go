package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mutagen-io/filepoll/cmd"
	"github.com/mutagen-io/filepoll/pkg/configuration"
	"github.com/mutagen-io/filepoll/pkg/filepoll"
	"github.com/mutagen-io/filepoll/pkg/logging"
	"github.com/mutagen-io/filepoll/pkg/provider"
)

// loadWatchConfiguration loads the configuration file and merges command line
// settings on top of it. Flags only override file settings when explicitly
// set. A missing default configuration file is not an error, but a missing
// explicitly specified one is.
func loadWatchConfiguration(flags *pflag.FlagSet, arguments []string) (*configuration.Configuration, error) {
	// Determine the configuration file path.
	path := watchConfiguration.configuration
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = configuration.ConfigurationPath(); err != nil {
			return nil, errors.Wrap(err, "unable to compute configuration path")
		}
	}

	// Load the configuration file.
	result, err := configuration.LoadConfiguration(path)
	if err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "unable to load configuration from %s", path)
		}
		result = &configuration.Configuration{}
	}

	// Merge command line settings.
	if len(arguments) > 0 {
		result.Directories = arguments
	}
	if flags.Changed("filter") {
		result.Filters = watchConfiguration.filters
	}
	if flags.Changed("interval") {
		result.Interval = watchConfiguration.interval
	}
	if flags.Changed("recursive") {
		result.IncludeSubpath = watchConfiguration.recursive
	}
	if flags.Changed("include-existing") {
		result.IncludeExistingFiles = watchConfiguration.includeExisting
	}
	if flags.Changed("capacity") {
		result.Capacity = watchConfiguration.capacity
	}
	if flags.Changed("pattern") {
		result.Pattern = watchConfiguration.pattern
	}
	if flags.Changed("log-level") {
		result.LogLevel = watchConfiguration.logLevel
	}

	// Validate the merged configuration.
	if err := result.EnsureValid(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	// Success.
	return result, nil
}

// eventPrinter prints change notifications to an output stream.
type eventPrinter struct {
	// lock serializes output from concurrent pipelines.
	lock sync.Mutex
	// output is the output stream.
	output io.Writer
	// content indicates whether or not file contents are printed.
	content bool
}

// handler creates a change handler that prints notifications with the
// specified label.
func (p *eventPrinter) handler(label *color.Color, kind provider.Kind) provider.Handler {
	return func(message *provider.Message) {
		p.lock.Lock()
		defer p.lock.Unlock()
		if kind == provider.KindDeleted {
			fmt.Fprintf(p.output, "%s %s\n", label.Sprintf("%-7s", kind), message.Name)
			return
		}
		fmt.Fprintf(p.output, "%s %s (%s)\n",
			label.Sprintf("%-7s", kind), message.Name,
			humanize.Bytes(uint64(message.ContentLength)),
		)
		if p.content && message.Content != "" {
			fmt.Fprintln(p.output, message.Content)
		}
	}
}

// watchMain is the entry point for the watch command.
func watchMain(command *cobra.Command, arguments []string) error {
	// Load and merge configuration.
	watchSettings, err := loadWatchConfiguration(command.Flags(), arguments)
	if err != nil {
		return err
	}

	// Disable color output if standard output isn't a terminal.
	if fd := os.Stdout.Fd(); !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		color.NoColor = true
	}

	// Create the logger.
	defaultLevel := logging.LevelWarn
	if filepoll.DebugEnabled {
		defaultLevel = logging.LevelDebug
	}
	logger := logging.NewLogger(watchSettings.Level(defaultLevel), color.Error)

	// Create the handlers.
	printer := &eventPrinter{output: color.Output, content: watchConfiguration.content}
	handlers := provider.Handlers{
		Created: printer.handler(color.New(color.FgGreen), provider.KindCreated),
		Changed: printer.handler(color.New(color.FgYellow), provider.KindChanged),
		Deleted: printer.handler(color.New(color.FgRed), provider.KindDeleted),
		Error: func(err error) {
			if logger.Level() < logging.LevelWarn {
				cmd.Warning(err.Error())
			}
		},
	}

	// Create a channel to track termination signals. We do this before starting
	// the provider so that a signal never arrives unobserved.
	signalTermination := make(chan os.Signal, 2)
	signal.Notify(signalTermination, cmd.TerminationSignals...)
	defer signal.Stop(signalTermination)

	// Create and start the provider.
	watcher, err := provider.New(logger.Sublogger("provider"), watchSettings.Provider(), handlers)
	if err != nil {
		return errors.Wrap(err, "unable to create provider")
	}
	if err := watcher.Start(); err != nil {
		return errors.Wrap(err, "unable to start provider")
	}
	logger.Infof("Watching %d director(ies) as %s", len(watchSettings.Directories), watcher.Identifier())

	// Wait for a termination signal, then stop polling and let pending
	// notifications drain.
	sig := <-signalTermination
	logger.Infof("Received %s, draining pending notifications", sig)
	if err := watcher.Stop(); err != nil {
		return errors.Wrap(err, "unable to stop provider")
	}
	drained := make(chan error, 1)
	go func() {
		drained <- watcher.Wait(context.Background())
	}()

	// Abort delivery if a second signal arrives before draining completes.
	select {
	case err := <-drained:
		return err
	case sig := <-signalTermination:
		logger.Infof("Received %s, aborting", sig)
		if err := watcher.Abort(); err != nil && !errors.Is(err, provider.ErrInvalidState) {
			return errors.Wrap(err, "unable to abort provider")
		}
		return <-drained
	}
}

// watchCommand is the watch command.
var watchCommand = &cobra.Command{
	Use:          "watch [<directory>...]",
	Short:        "Poll directories and report created, changed, and deleted files",
	RunE:         watchMain,
	SilenceUsage: true,
}

// watchConfiguration stores configuration for the watch command.
var watchConfiguration struct {
	// help indicates whether or not to show help information and exit.
	help bool
	// configuration is the path to the configuration file.
	configuration string
	// filters are the notification filters.
	filters []string
	// interval is the polling interval in milliseconds.
	interval uint32
	// recursive indicates whether or not subdirectories are watched.
	recursive bool
	// includeExisting indicates whether or not existing files are reported as
	// created.
	includeExisting bool
	// capacity is the per-pipeline queue capacity.
	capacity uint32
	// pattern is the enumeration pattern.
	pattern string
	// logLevel is the log level name.
	logLevel string
	// content indicates whether or not file contents are printed.
	content bool
}

func init() {
	// Grab a handle for the command line flags.
	flags := watchCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message. Cobra will
	// still implement its logic automatically.
	flags.BoolVarP(&watchConfiguration.help, "help", "h", false, "Show help information")

	// Wire up configuration flags.
	flags.StringVarP(&watchConfiguration.configuration, "config", "c", "", "Specify the configuration file path (defaults to ~/"+configuration.ConfigurationName+")")
	flags.StringArrayVarP(&watchConfiguration.filters, "filter", "f", nil, "Report only paths matching the case-insensitive pattern (may be repeated)")
	flags.Uint32VarP(&watchConfiguration.interval, "interval", "i", 0, "Specify the polling interval in milliseconds (defaults to 60000)")
	flags.BoolVarP(&watchConfiguration.recursive, "recursive", "r", false, "Watch subdirectories")
	flags.BoolVar(&watchConfiguration.includeExisting, "include-existing", false, "Report files present at startup as created")
	flags.Uint32Var(&watchConfiguration.capacity, "capacity", 0, "Specify the notification queue capacity (defaults to 10)")
	flags.StringVar(&watchConfiguration.pattern, "pattern", "", "Enumerate only files whose names match the pattern")
	flags.StringVarP(&watchConfiguration.logLevel, "log-level", "l", "", "Specify the log level (disabled|error|warn|info|debug|trace)")
	flags.BoolVar(&watchConfiguration.content, "content", false, "Print file contents with each notification")
}

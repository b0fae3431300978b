// Package commands implements the vpg command line.
package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	internal "github.com/ZanzyTHEbar/virtual-photogrid/vpg"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/config"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/ports"
)

var (
	Version = "dev"
	Commit  = "none"

	configFile string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
	out    ports.Interactor
)

var rootCmd = &cobra.Command{
	Use:           internal.DefaultAppName,
	Short:         "Photo timeline library with a bucketed, lazily loaded grid",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		logger = internal.GetLoggerLevel(level)
		out = newConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", fmt.Sprintf("config file (default %s)", internal.DefaultGlobalConfigFile))
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, importCmd, bucketsCmd, timelineCmd)
}

// Execute runs the root command.
func Execute() error {
	rootCmd.Version = fmt.Sprintf("%s (%s)", Version, Commit)
	return rootCmd.Execute()
}

// console writes command output to the cobra streams.
type console struct {
	w, errW io.Writer
}

func newConsole(w, errW io.Writer) *console {
	return &console{w: w, errW: errW}
}

func (c *console) Output(message string) { fmt.Fprintln(c.w, message) }

func (c *console) Outputf(format string, args ...any) { fmt.Fprintf(c.w, format, args...) }

func (c *console) Warning(message string) { fmt.Fprintln(c.errW, "warning: "+message) }

func (c *console) Error(message string, err error) {
	fmt.Fprintf(c.errW, "error: %s: %v\n", message, err)
}

// Command segstore serves a segments store over gRPC, and manages segment
// result containers held in such a store.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-sif/segments/config"
	"github.com/go-sif/segments/store/rpc"

	// register the stored value types
	_ "github.com/go-sif/segments/models"
)

// globalFlags are shared by every command
type globalFlags struct {
	configFile string
	logLevel   string
}

// options assembles configuration from the config file, the environment and flags, in increasing precedence
func (g *globalFlags) options() (*config.Options, error) {
	opts := &config.Options{}
	if len(g.configFile) > 0 {
		loaded, err := config.Load(g.configFile)
		if err != nil {
			return nil, err
		}
		opts = loaded
	}
	if err := opts.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if len(g.logLevel) > 0 {
		opts.LogLevel = g.logLevel
	}
	opts.EnsureDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (g *globalFlags) logger(opts *config.Options) (log.Logger, error) {
	return opts.Logger(log.NewSyncWriter(os.Stderr))
}

// dial connects to the store server named by the configuration
func dial(opts *config.Options) (*rpc.Client, error) {
	return rpc.Dial(opts.StoreAddress, opts.ClientOptions())
}

func main() {
	app := kingpin.New("segstore", "Serve a segments store, and manage segment result containers held in it.")
	g := &globalFlags{}
	app.Flag("config", "Path to a YAML configuration file").StringVar(&g.configFile)
	app.Flag("log.level", "Log level (trace, debug, info, warn, error, fatal)").StringVar(&g.logLevel)

	addServeCommand(app, g)
	addKeysCommand(app, g)
	addMakeCommand(app, g)
	addInspectCommand(app, g)
	addRemoveCommand(app, g)

	if _, err := app.Parse(os.Args[1:]); err != nil {
		exitWithErr(err)
	}
}

func exitWithErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}

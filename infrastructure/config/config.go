// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/go-socks/socks"
	"github.com/jessevdk/go-flags"
	"github.com/kaspanet/btchandshake/version"
	"github.com/pkg/errors"
)

const (
	defaultConfigFilename = "btchandshake.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "btchandshake.log"
	defaultErrLogFilename = "btchandshake_err.log"
	defaultLogLevel       = "info"
	defaultHost           = "localhost"
	defaultTimeout        = 30 * time.Second
)

var (
	// DefaultHomeDir is the default home directory for btchandshake.
	DefaultHomeDir = btcutil.AppDataDir(version.AppName, false)

	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(DefaultHomeDir, defaultLogDirname)
)

// Flags defines the configuration options for btchandshake.
//
// See LoadConfig for details on the configuration load process.
type Flags struct {
	ShowVersion       bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile        string        `short:"C" long:"configfile" description:"Path to configuration file"`
	LogDir            string        `long:"logdir" description:"Directory to log output."`
	NoLogFiles        bool          `long:"nologfiles" description:"Disable logging to the log files"`
	DebugLevel        string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Host              string        `short:"s" long:"host" description:"Host name or IP of the node to handshake with"`
	Port              string        `short:"p" long:"port" description:"Port of the node (default: the network's default port)"`
	Timeout           time.Duration `short:"t" long:"timeout" description:"Time allowed for connecting and for the whole handshake"`
	UserAgentComments []string      `long:"useragentcomments" description:"Comment to add to the user agent -- See BIP 14 for more information."`
	StartHeight       int32         `long:"startheight" description:"Best block height to advertise in the version message"`
	BlocksOnly        bool          `long:"blocksonly" description:"Ask the peer not to relay transactions"`
	Proxy             string        `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser         string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass         string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	TorIsolation      bool          `long:"torisolation" description:"Enable Tor stream isolation by randomizing user credentials for each connection."`
	NetworkFlags
}

// Config defines the configuration options for btchandshake, as resolved
// from Flags.
type Config struct {
	*Flags

	// PeerAddress is the host:port the handshake is performed with.
	PeerAddress string

	// Dial connects to the peer, through the proxy when one is configured.
	Dial func(string, string, time.Duration) (net.Conn, error)

	configFileError error
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

func defaultFlags() *Flags {
	return &Flags{
		ConfigFile: defaultConfigFile,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
		Host:       defaultHost,
		Timeout:    defaultTimeout,
	}
}

// LoadConfig initializes and parses the config using a config file and the
// passed command line arguments.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load configuration file overwriting defaults with any specified options
// 	4) Parse CLI options and overwrite/add any specified options
//
// The above results in btchandshake functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options. Command line options always take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfgFlags := defaultFlags()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified. Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := *cfgFlags
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			return nil, err
		}
	}

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		return &Config{Flags: &preCfg}, nil
	}

	// Load additional config from file.
	cfg := &Config{Flags: cfgFlags}
	parser := flags.NewParser(cfgFlags, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cleanAndExpandPath(preCfg.ConfigFile))
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(os.Stderr, "Error parsing config "+
				"file: %s\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, errors.Wrap(err, "parsing config file")
		}
		cfg.configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, err
	}
	if len(remainingArgs) > 0 {
		err := errors.Errorf("unexpected arguments: %s", strings.Join(remainingArgs, " "))
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, err
	}

	err = cfg.ResolveNetwork(parser)
	if err != nil {
		return nil, err
	}

	err = cfg.resolvePeer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, err
	}

	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	err = cfg.resolveDial()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, err
	}

	return cfg, nil
}

// resolvePeer validates the peer options and fills in the network's default
// port.
func (cfg *Config) resolvePeer() error {
	if cfg.Host == "" {
		return errors.New("the host must not be empty")
	}
	if cfg.Timeout <= 0 {
		return errors.Errorf("the timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.StartHeight < 0 {
		return errors.Errorf("the start height must not be negative, got %d", cfg.StartHeight)
	}
	if cfg.Port == "" {
		cfg.Port = cfg.NetParams().DefaultPort
	}
	cfg.PeerAddress = net.JoinHostPort(cfg.Host, cfg.Port)
	return nil
}

// resolveDial sets up the dial function depending on the specified options.
// The default is to use the standard net.DialTimeout function. When a proxy
// is specified, the dial function is set to the proxy specific dial function.
func (cfg *Config) resolveDial() error {
	cfg.Dial = net.DialTimeout
	if cfg.Proxy == "" {
		return nil
	}

	_, _, err := net.SplitHostPort(cfg.Proxy)
	if err != nil {
		return errors.Errorf("proxy address '%s' is invalid: %s", cfg.Proxy, err)
	}

	proxy := &socks.Proxy{
		Addr:         cfg.Proxy,
		Username:     cfg.ProxyUser,
		Password:     cfg.ProxyPass,
		TorIsolation: cfg.TorIsolation,
	}
	cfg.Dial = proxy.DialTimeout
	return nil
}

// LogFiles returns the paths of the log file and the error log file.
func (cfg *Config) LogFiles() (logFile, errLogFile string) {
	return filepath.Join(cfg.LogDir, defaultLogFilename),
		filepath.Join(cfg.LogDir, defaultErrLogFilename)
}

// LogDeferredWarnings logs the warnings found while loading the config. It
// is meant to be called once logging is initialized.
func (cfg *Config) LogDeferredWarnings() {
	// Warn about missing config file only after all other configuration is
	// done. This prevents the warning on help messages and invalid options.
	if cfg.configFileError != nil {
		log.Warnf("%s", cfg.configFileError)
	}
	if cfg.Proxy != "" {
		log.Infof("Dialing through SOCKS5 proxy %s", cfg.Proxy)
	}
}

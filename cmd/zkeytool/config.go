// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/zkeystore/internal/cfgutil"
	"github.com/btcsuite/zkeystore/keystore"
	"github.com/btcsuite/zkeystore/netparams"
	"github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "zkeytool.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "zkeytool.log"
	keyDBName             = "keys.db"
)

var (
	zkeytoolHomeDir   = btcutil.AppDataDir("zkeytool", false)
	defaultConfigFile = filepath.Join(zkeytoolHomeDir, defaultConfigFilename)
	defaultDataDir    = zkeytoolHomeDir
	defaultLogDir     = filepath.Join(zkeytoolHomeDir, defaultLogDirname)
)

type config struct {
	ConfigFile  *cfgutil.ExplicitString `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion bool                    `short:"V" long:"version" description:"Display version information and exit"`
	DataDir     *cfgutil.ExplicitString `short:"b" long:"datadir" description:"Directory to store key databases"`
	LogDir      *cfgutil.ExplicitString `long:"logdir" description:"Directory to log output"`
	DebugLevel  string                  `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	TestNet     bool                    `long:"testnet" description:"Use the test network"`
	RegTest     bool                    `long:"regtest" description:"Use the regression test network"`
	FastScrypt  bool                    `long:"fastscrypt" description:"Use weak scrypt parameters for new passphrases -- testing only"`

	params *netparams.Params
	dbPath string
}

// scryptOptions returns the scrypt parameters selected by the config.
func (cfg *config) scryptOptions() *keystore.ScryptOptions {
	if cfg.FastScrypt {
		return &keystore.FastScryptOptions
	}
	return &keystore.DefaultScryptOptions
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		setLogLevels(debugLevel)
		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// Everything after the first non-option argument is returned unparsed as the
// command and its arguments.
func loadConfig(args []string) (*config, []string, error) {
	cfg := config{
		ConfigFile: cfgutil.NewExplicitString(defaultConfigFile),
		DataDir:    cfgutil.NewExplicitString(defaultDataDir),
		LogDir:     cfgutil.NewExplicitString(defaultLogDir),
		DebugLevel: defaultLogLevel,
	}

	const parseOpts = flags.Default | flags.PassAfterNonOption

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := config{
		ConfigFile: cfgutil.NewExplicitString(defaultConfigFile),
		DataDir:    cfgutil.NewExplicitString(defaultDataDir),
		LogDir:     cfgutil.NewExplicitString(defaultLogDir),
	}
	preParser := flags.NewParser(&preCfg, parseOpts)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, nil, err
	}

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	// Load additional config from file.  A missing default config file is
	// not an error.
	parser := flags.NewParser(&cfg, parseOpts)
	configFile := cfgutil.CleanAndExpandPath(
		preCfg.ConfigFile.Value, filepath.Dir(zkeytoolHomeDir),
	)
	err := flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok ||
			preCfg.ConfigFile.ExplicitlySet() {

			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	// Choose the active network params based on the selected network.
	// Multiple networks can't be selected simultaneously.
	cfg.params = &netparams.MainNetParams
	numNets := 0
	if cfg.TestNet {
		cfg.params = &netparams.TestNetParams
		numNets++
	}
	if cfg.RegTest {
		cfg.params = &netparams.RegTestParams
		numNets++
	}
	if numNets > 1 {
		err := fmt.Errorf("loadConfig: the testnet and regtest params " +
			"can't be used together -- choose one")
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// If an alternate data directory was specified, and the log
	// directory was left at its default, log within the new data
	// directory.
	homeDir := filepath.Dir(zkeytoolHomeDir)
	cfg.DataDir.Value = cfgutil.CleanAndExpandPath(cfg.DataDir.Value, homeDir)
	if cfg.DataDir.ExplicitlySet() && !cfg.LogDir.ExplicitlySet() {
		cfg.LogDir.Value = filepath.Join(
			cfg.DataDir.Value, defaultLogDirname,
		)
	}
	cfg.LogDir.Value = cfgutil.CleanAndExpandPath(cfg.LogDir.Value, homeDir)

	// Namespace the database and logs per network.
	netDir := filepath.Join(cfg.DataDir.Value, cfg.params.Name)
	cfg.dbPath = filepath.Join(netDir, keyDBName)
	logDir := filepath.Join(cfg.LogDir.Value, cfg.params.Name)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	err = initLogRotator(filepath.Join(logDir, defaultLogFilename))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	setLogLevels(defaultLogLevel)

	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("loadConfig: %w", err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}

package cmd

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/leftmike/duet/config"
)

var (
	duetCmd = &cobra.Command{
		Use:   "duet",
		Short: "A distributed transactional storage engine",
		Long: "Duet is a didactic distributed transactional storage engine: timestamp " +
			"ordered transactions with multiversion reads, deadlock detection, and a two " +
			"phase commit across two in-memory relational stores.",
		PersistentPreRunE: duetPreRun,
		PersistentPostRun: duetPostRun,
	}

	logFile   = "duet.log"
	logLevel  = "info"
	logStderr = false
	logWriter io.WriteCloser

	configFile = "duet.hcl"
	noConfig   = false

	configArgs = []string{}
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	fs := duetCmd.PersistentFlags()

	fs.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	fs.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	fs.BoolVarP(&logStderr, "log-stderr", "s", logStderr, "log to standard error")

	fs.StringVar(&configFile, "config-file", configFile, "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", noConfig, "don't load config file")
	fs.StringArrayVar(&configArgs, "config", configArgs, "set a config variable: `name=value`")
}

func Execute() error {
	return duetCmd.Execute()
}

func duetPreRun(cmd *cobra.Command, args []string) error {
	if configFile != "" && !noConfig {
		err := config.Load(configFile)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("duet: %s", err)
		}
	}
	for _, arg := range configArgs {
		err := setConfigArg(arg)
		if err != nil {
			return fmt.Errorf("duet: %s", err)
		}
	}

	if !logStderr && logFile != "" {
		var err error
		logWriter, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logWriter = nil
			return fmt.Errorf("duet: %s", err)
		}
		log.SetOutput(logWriter)
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("duet: %s", err)
	}
	log.SetLevel(ll)

	log.WithField("pid", os.Getpid()).Info("duet starting")
	return nil
}

func duetPostRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("duet done")

	if logWriter != nil {
		logWriter.Close()
	}
}

func setConfigArg(arg string) error {
	for idx := 0; idx < len(arg); idx++ {
		if arg[idx] == '=' {
			return config.Set(arg[:idx], arg[idx+1:])
		}
	}
	return fmt.Errorf("expected name=value; got %s", arg)
}

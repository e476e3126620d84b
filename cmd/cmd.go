package cmd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/constants"
	"github.com/sagan/ptxseed/flags"
)

// Root represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "ptxseed",
	Short: "ptxseed finds torrents identical to the ones in your BitTorrent clients on private trackers and cross-seeds them.",
	Long: `ptxseed finds torrents identical to the ones in your BitTorrent clients on private trackers and cross-seeds them.
Matched torrents are added paused, and started only after the client has verified the data.

` + constants.HELP_CONFIG,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.OnInitialize(func() {
		// level: panic(0), fatal(1), error(2), warn(3), info(4), debug(5), trace(6). Default level = warning(3)
		config.ConfigDir = filepath.Dir(config.ConfigFile)
		if err := godotenv.Load(filepath.Join(config.ConfigDir, ".env")); err == nil {
			log.Debugf("Loaded .env of config dir")
		}
		logLevel := 3 + config.VerboseLevel
		log.SetLevel(log.Level(logLevel))
		log.SetFormatter(&prefixed.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceFormatting: true,
		})
		if flags.LogFile != "" {
			SetLogFile(flags.LogFile)
		}
		log.Debugf("ptxseed start: %s", os.Args)
		log.Infof("config file: %s", config.ConfigFile)
		if config.LockFile != "" {
			log.Debugf("Locking file: %s", config.LockFile)
			err := flock.New(config.LockFile).Lock()
			if err != nil {
				log.Fatalf("Unable to lock file %s: %v", config.LockFile, err)
			}
			log.Infof("Lock acquired")
		}
	})
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// Write logs to both stderr and the rotated filename.
func SetLogFile(filename string) {
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
	}))
}

func init() {
	UserHomeDir, _ := os.UserHomeDir()
	configFile := "ptxseed.toml"
	configFiles := []string{
		UserHomeDir + "/.config/ptxseed/ptxseed.toml",
		UserHomeDir + "/.config/ptxseed/ptxseed.yaml",
		"ptxseed.toml",
		"ptxseed.yaml",
	}
	for _, cf := range configFiles {
		_, err := os.Stat(cf)
		if err == nil {
			configFile = cf
			break
		}
	}

	// global flags
	RootCmd.PersistentFlags().StringVarP(&config.ConfigFile, "config", "", configFile, "Config file ([ptxseed.toml])")
	RootCmd.PersistentFlags().StringVarP(&config.LockFile, "lock", "", "", "Lock filename. If set, ptxseed will acquire the lock on the file before executing command. It is intended to be used to prevent multiple invocations of ptxseed process at the same time. If the lock file does not exist, it will be created automatically. However, it will NOT be deleted after ptxseed process exits")
	RootCmd.PersistentFlags().CountVarP(&config.VerboseLevel, "verbose", "v", "verbose (-v, -vv, -vvv)")
	RootCmd.PersistentFlags().StringVarP(&flags.LogFile, "log-file", "", "", "Also write logs to this file (rotated)")
	RootCmd.PersistentFlags().BoolVarP(&flags.DumpHeaders, "dump-headers", "", false, "Log headers of all http requests and responses")
	RootCmd.PersistentFlags().BoolVarP(&flags.DumpBodies, "dump-bodies", "", false, "Log bodies of all http requests and responses")
}

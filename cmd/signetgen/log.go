package main

import (
	"fmt"
	"os"

	"github.com/signetlabs/signet-go/infrastructure/logger"
)

var (
	backendLog = logger.NewBackend()
	log        = backendLog.Logger("SGEN")
)

type stderrWriter struct{}

func (stderrWriter) Write(p []byte) (int, error) { return os.Stderr.Write(p) }
func (stderrWriter) Close() error                { return nil }

func initLog(logFile, logLevel string) {
	level, ok := logger.LevelFromString(logLevel)
	if !ok {
		fmt.Fprintf(os.Stderr, "Invalid log level %s\n", logLevel)
		os.Exit(1)
	}

	err := backendLog.AddLogWriter(stderrWriter{}, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding stderr log writer: %s\n", err)
		os.Exit(1)
	}
	if logFile != "" {
		err := backendLog.AddLogFile(logFile, logger.LevelTrace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s\n",
				logFile, logger.LevelTrace, err)
			os.Exit(1)
		}
	}

	err = backendLog.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting the logger backend: %s\n", err)
		os.Exit(1)
	}
	log.SetLevel(level)
}

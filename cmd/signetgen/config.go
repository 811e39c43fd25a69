package main

import (
	"github.com/jessevdk/go-flags"
)

type config struct {
	Chain       string `long:"chain" short:"c" description:"Chain family of the transaction" choice:"bitcoin" choice:"evm" default:"evm"`
	Transaction string `long:"transaction" short:"t" description:"Path to the JSON transaction description, or - for stdin" required:"true"`
	PrivateKey  string `long:"private-key" short:"p" description:"Private key in HEX format; when set, the transaction is signed and the finalized encoding is printed"`
	LogFile     string `long:"logfile" description:"File to write the log to in addition to stderr"`
	LogLevel    string `long:"loglevel" short:"d" description:"Logging level" default:"info"`
	ShowVersion bool   `long:"version" short:"V" description:"Display version information and exit"`
}

func parseCommandLine() (*config, error) {
	cfg := &config{}
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	_, err := parser.Parse()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

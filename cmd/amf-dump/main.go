// Command amf-dump decodes an AMF0/AMF3 invocation-response payload and
// prints the resulting value tree as JSON.
package main

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"

	"github.com/alxayo/go-flexamf/amf"
	"github.com/alxayo/go-flexamf/internal/logger"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		// flag package already printed usage/error
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	// Initialize global logger and set level based on flag
	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	data, err := readPayload(cfg.inPath)
	if err != nil {
		log.Error("failed to read payload", "path", cfg.inPath, "error", err)
		os.Exit(1)
	}

	dec := amf.NewDecoder()
	out, err := dec.Decode(data, amf.NewTypedObject(""))
	if err != nil {
		logger.WithPayload(log, len(data)).Error("decode failed", "error", err)
		os.Exit(1)
	}

	rendered, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Error("failed to render result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(rendered))
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

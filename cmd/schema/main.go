package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
	"github.com/invopop/jsonschema"
)

// schema печатает JSON Schema одной строки протокола.
func main() {
	out := flag.String("out", "", "Write schema to file instead of stdout")
	flag.Parse()

	data, err := build()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build schema")
	}

	if *out == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		logger.Log.WithError(err).Fatal("Failed to write schema")
	}
	logger.Log.WithField("path", *out).Info("Schema written")
}

func build() ([]byte, error) {
	r := &jsonschema.Reflector{
		// Получатель игнорирует незнакомые поля.
		AllowAdditionalProperties: true,
	}
	s := r.Reflect(new(protocol.Wire))
	s.Title = "RuneMirror action message"
	s.Description = fmt.Sprintf("One newline-delimited JSON object per action, protocol version %d", protocol.Version)
	return json.MarshalIndent(s, "", "  ")
}

package common

import (
	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
)

// discardWriter satisfies writers.IWriter and drops everything. Giving the
// logger an explicit writer keeps it off any globally registered writers.
type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (w *discardWriter) WithLevel(_ log.Level) writers.IWriter { return w }
func (w *discardWriter) GetFilePath() string                   { return "" }
func (w *discardWriter) Close() error                          { return nil }

// NewSilentLogger returns a logger that writes nowhere. Components fall back
// to it when constructed without a logger.
func NewSilentLogger() arbor.ILogger {
	return arbor.NewLogger().WithWriters([]writers.IWriter{&discardWriter{}})
}

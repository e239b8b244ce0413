package logger

import (
	"time"

	"go.uber.org/zap"
)

func String(key, val string) Field { return zap.String(key, val) }

func Strings(key string, val []string) Field { return zap.Strings(key, val) }

func Int(key string, val int) Field { return zap.Int(key, val) }

func Bool(key string, val bool) Field { return zap.Bool(key, val) }

func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }

func Any(key string, val any) Field { return zap.Any(key, val) }

// Err attaches err under the "error" key.
func Err(err error) Field { return zap.Error(err) }

// Component tags entries with the subsystem that produced them.
func Component(name string) Field { return zap.String("component", name) }

// URL tags entries with the page being processed.
func URL(u string) Field { return zap.String("url", u) }

package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestInitReadsLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	Init()

	if Log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", Log.GetLevel())
	}
	if _, ok := Log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("expected JSON formatter, got %T", Log.Formatter)
	}
}

func TestInitFallsBackToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	Init()

	if Log.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", Log.GetLevel())
	}
}

func TestOrDefaultAddsComponent(t *testing.T) {
	l, hook := test.NewNullLogger()
	OrDefault(logrus.NewEntry(l), "listener").Info("hello")

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected an entry")
	}
	if entry.Data["component"] != "listener" {
		t.Errorf("component = %v, want listener", entry.Data["component"])
	}
}

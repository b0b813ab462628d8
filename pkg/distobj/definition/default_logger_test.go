package definition

import "testing"

func TestDefaultLogger_ToggleDebug(t *testing.T) {
	logger := NewDefaultLogger()

	if logger.ToggleDebug(true) != true {
		t.Fatal("expected debug enabled")
	}
	logger.Debugf("debug %d", 1)

	if logger.ToggleDebug(false) != false {
		t.Fatal("expected debug disabled")
	}
	logger.Debug("suppressed")
	logger.Infof("info %s", "message")
	logger.Warn("warn")
	logger.Errorf("error %d", 2)
}

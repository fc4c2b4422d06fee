package chatango

import (
	"io"

	"github.com/sirupsen/logrus"
)

// testLogger returns a silenced entry so tests do not spam output.
func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

package specutil

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// devChecks gates expensive self-checks behind a single package-level
// switch rather than threading a flag through every call. It is read
// once from SPECUTIL_DEV_CHECKS so tests can exercise both paths
// without a build tag.
var devChecks = os.Getenv("SPECUTIL_DEV_CHECKS") != ""

var devLog = func() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}()

// devAssert logs a developer-check failure. It never alters program
// semantics; callers that rely on the condition must still handle it
// themselves. Only fires when devChecks is enabled.
func devAssert(ok bool, msg string, fields logrus.Fields) {
	if devChecks && !ok {
		devLog.WithFields(fields).Error(msg)
	}
}

// warnf logs an operator-facing warning (e.g. deviation-pair Newton
// iteration failing to converge, or a neutron/gamma pairing falling back
// to edit-distance heuristics) and returns the same text so the caller
// can also append it to a record's parse_warnings or return it, so that a
// programmatic caller does not need a logging sink to see it.
func warnf(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	devLog.Warn(msg)
	return msg
}

package report

import (
	"fmt"
	"os"
)

// ReportError reports a translation error in the named function.  The fnName
// may be empty for module-level errors.
func ReportError(fileName, fnName string, err *TranslateError) {
	if rep.logLevel >= LogLevelError {
		rep.m.Lock()
		defer rep.m.Unlock()

		rep.errorCount++

		displayError(fileName, fnName, err)
	}
}

// ReportWarning reports a translation warning.  Warnings carry the same
// structure as errors but never abort translation: borrowing insights such as
// an unnecessary move are reported through here.
func ReportWarning(fileName, fnName string, err *TranslateError) {
	if rep.logLevel >= LogLevelWarn {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayWarning(fileName, fnName, err)
	}
}

// ReportFatal reports a fatal error and exits.  These are expected errors that
// generally result from invalid configuration: an unreadable config file, a
// missing input path, etc.
func ReportFatal(msg string, args ...interface{}) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayFatal(fmt.Sprintf(msg, args...))
	}

	os.Exit(1)
}

// -----------------------------------------------------------------------------

// AnyErrors returns whether any errors have been reported.
func AnyErrors() bool {
	return rep.errorCount > 0
}

// ErrorCount returns the number of errors reported so far.
func ErrorCount() int {
	return rep.errorCount
}

// -----------------------------------------------------------------------------

// ReportTranslationHeader reports the pre-translation header describing the
// transpiler's current configuration.  Verbose log level only.
func ReportTranslationHeader(inputPath string, optimize bool) {
	if rep.logLevel == LogLevelVerbose {
		displayTranslationHeader(inputPath, optimize)
	}
}

// ReportTranslationFinished reports the concluding message for translation:
// how many functions were emitted and how many failed.
func ReportTranslationFinished(outputPath string, emitted, failed int) {
	if rep.logLevel == LogLevelVerbose {
		displayTranslationFinished(outputPath, emitted, failed)
	}
}

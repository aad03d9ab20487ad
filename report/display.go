package report

import (
	"fmt"

	"github.com/pterm/pterm"
)

var (
	successColorFG = pterm.FgLightGreen
	successStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	warnColorFG    = pterm.FgYellow
	warnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	errorColorFG   = pterm.FgRed
	errorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
)

// displayError displays a translation error with its location, suggestions
// included.
func displayError(fileName, fnName string, err *TranslateError) {
	errorStyleBG.Print("Error")
	errorColorFG.Println(" " + formatMessage(fileName, fnName, err))

	for _, suggestion := range err.Suggestions {
		fmt.Println("  hint: " + suggestion)
	}
}

// displayWarning displays a translation warning.
func displayWarning(fileName, fnName string, err *TranslateError) {
	warnStyleBG.Print("Warning")
	warnColorFG.Println(" " + formatMessage(fileName, fnName, err))
}

// displayFatal displays a fatal error message.
func displayFatal(message string) {
	errorStyleBG.Print("Fatal")
	errorColorFG.Println(" " + message)
}

// formatMessage prefixes an error message with its file, function, and span.
func formatMessage(fileName, fnName string, err *TranslateError) string {
	prefix := fileName
	if fnName != "" {
		prefix += ":" + fnName
	}

	if err.Span != nil {
		prefix += ":" + err.Span.String()
	}

	if prefix == "" {
		return err.Error()
	}

	return prefix + ": " + err.Error()
}

// -----------------------------------------------------------------------------

// displayTranslationHeader displays the pre-translation banner.
func displayTranslationHeader(inputPath string, optimize bool) {
	pterm.Printf("pyrus translating %s", inputPath)
	if optimize {
		pterm.Println(" (optimized)")
	} else {
		pterm.Println()
	}
}

// displayTranslationFinished displays the concluding translation message.
func displayTranslationFinished(outputPath string, emitted, failed int) {
	if failed == 0 {
		successStyleBG.Print("Done")
		successColorFG.Printf(" %d function(s) emitted to %s\n", emitted, outputPath)
	} else {
		warnStyleBG.Print("Done")
		warnColorFG.Printf(" %d function(s) emitted, %d failed, output in %s\n", emitted, failed, outputPath)
	}
}

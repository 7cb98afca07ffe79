package main

import (
	"fmt"
	"io"
	"os"
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// startServer is a variable to allow mocking in tests
var startServer = runServer

// Run is the entrypoint for testing
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		// Default to server
		startServer()
		return 0
	}

	switch args[1] {
	case "server", "serve":
		startServer()
		return 0
	case "ingest":
		return runIngestCmd(args[2:], stdout, stderr)
	case "retract":
		return runRetractCmd(args[2:], stdout, stderr)
	case "corroborate":
		return runCorroborateCmd(args[2:], stdout, stderr)
	case "index":
		return runIndexCmd(args[2:], stdout, stderr)
	case "publisher":
		return runPublisherCmd(args[2:], stdout, stderr)
	case "roadmap":
		return runRoadmapCmd(args[2:], stdout, stderr)
	case "doctor":
		return runDoctorCmd(stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		if args[1][0] == '-' {
			startServer()
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

// ANSI Colors
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorGreen = "\033[32m"
	ColorBlue  = "\033[34m"
	ColorCyan  = "\033[36m"
	ColorGray  = "\033[37m"
)

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%sVANTAGE Core %s%s\n", ColorBold+ColorBlue, "v0.1.0", ColorReset)
	fmt.Fprintf(w, "%sEvidence in, index out.%s\n", ColorGray, ColorReset)
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%sUSAGE:%s\n", ColorBold, ColorReset)
	fmt.Fprintln(w, "  vantage <command> [flags]")
	fmt.Fprintln(w, "")

	printSection(w, "PIPELINE")
	printCommand(w, "server", "Run the periodic pipeline (default)")
	printCommand(w, "ingest", "Ingest candidate events from stdin JSON")
	printCommand(w, "retract", "Mark an ingested event as retracted")
	printCommand(w, "corroborate", "Run one corroboration pass")
	printCommand(w, "index", "Compute the progress index snapshot")

	printSection(w, "ANALYSIS")
	printCommand(w, "publisher", "Compute a publisher credibility snapshot")
	printCommand(w, "roadmap", "Classify predicted vs observed milestone dates")

	printSection(w, "UTILITIES")
	printCommand(w, "doctor", "Check configuration and storage health")
	printCommand(w, "help", "Show this help")
	fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	fmt.Fprintf(w, "%s%s:%s\n", ColorBold+ColorCyan, title, ColorReset)
}

func printCommand(w io.Writer, name, desc string) {
	fmt.Fprintf(w, "  %s%-12s%s %s\n", ColorGreen, name, ColorReset, desc)
}

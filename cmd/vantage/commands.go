package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Vantage-Labs/vantage/core/pkg/budget"
	"github.com/Vantage-Labs/vantage/core/pkg/config"
	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
	"github.com/Vantage-Labs/vantage/core/pkg/fingerprint"
	"github.com/Vantage-Labs/vantage/core/pkg/ingest"
	"github.com/Vantage-Labs/vantage/core/pkg/roadmap"
	"github.com/Vantage-Labs/vantage/core/pkg/store"
)

const dayFormat = "2006-01-02"

// runIngestCmd reads candidate events as a JSON stream from stdin and
// pushes each through the dedup gate. Duplicates are reported and
// skipped, never treated as failures.
func runIngestCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	signpostCode := fs.String("signpost", "", "link ingested events to this signpost code")
	costCents := fs.Int64("cost", 1, "budget cost per candidate, in cents")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	subs, err := initSubsystems(ctx, config.Load())
	if err != nil {
		fmt.Fprintf(stderr, "init failed: %v\n", err)
		return 1
	}
	defer subs.Close()

	dec := json.NewDecoder(os.Stdin)
	var ingested, duplicates, denied, failed int
	for {
		var c ingest.Candidate
		if err := dec.Decode(&c); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(stderr, "invalid candidate JSON: %v\n", err)
			return 1
		}

		if c.DedupHash == "" && c.Title != "" && c.Publisher != "" {
			c.DedupHash = fingerprint.DedupHash(c.Title, c.Publisher, c.PublishedAt)
		}

		decision, err := subs.budget.Check(ctx, c.Publisher, budget.Cost{
			Amount: *costCents,
			Reason: "ingest " + c.URL,
		})
		if err != nil {
			failed++
			fmt.Fprintf(stderr, "budget check failed for %s: %v\n", c.Publisher, err)
			continue
		}
		if !decision.Allowed {
			denied++
			fmt.Fprintf(stdout, "budget exhausted for %s: %s\n", c.Publisher, decision.Reason)
			continue
		}

		ev, err := subs.gate.Ingest(ctx, c)
		switch {
		case errors.Is(err, contracts.ErrDuplicateEvidence):
			duplicates++
			fmt.Fprintf(stdout, "duplicate: %s\n", c.URL)
			continue
		case err != nil:
			failed++
			fmt.Fprintf(stderr, "ingest failed for %s: %v\n", c.URL, err)
			continue
		}
		ingested++
		fmt.Fprintf(stdout, "ingested: %s (%s)\n", ev.ID, ev.Title)

		if *signpostCode == "" {
			continue
		}
		link, err := subs.assigner.AssignLink(ctx, ev, *signpostCode)
		if errors.Is(err, contracts.ErrDuplicateLink) {
			fmt.Fprintf(stdout, "  link exists for %s\n", *signpostCode)
			continue
		}
		if err != nil {
			failed++
			fmt.Fprintf(stderr, "link failed for %s: %v\n", ev.ID, err)
			continue
		}
		fmt.Fprintf(stdout, "  linked: %s tier=%s confidence=%.2f provisional=%t\n",
			link.ID, string(link.Tier), link.Confidence, link.Provisional)
	}

	fmt.Fprintf(stdout, "done: %d ingested, %d duplicates, %d denied, %d failed\n",
		ingested, duplicates, denied, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func runRetractCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("retract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	eventID := fs.String("event", "", "event ID to retract (required)")
	reason := fs.String("reason", "", "retraction reason (required)")
	evidenceURL := fs.String("url", "", "URL documenting the retraction")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *eventID == "" || *reason == "" {
		fmt.Fprintln(stderr, "retract requires --event and --reason")
		fs.Usage()
		return 2
	}

	ctx := context.Background()
	subs, err := initSubsystems(ctx, config.Load())
	if err != nil {
		fmt.Fprintf(stderr, "init failed: %v\n", err)
		return 1
	}
	defer subs.Close()

	rec := contracts.RetractionRecord{Reason: *reason, EvidenceURL: *evidenceURL}
	if err := subs.gate.MarkRetracted(ctx, *eventID, rec); err != nil {
		fmt.Fprintf(stderr, "retract failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "retracted: %s\n", *eventID)
	return 0
}

func runCorroborateCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("corroborate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	subs, err := initSubsystems(ctx, config.Load())
	if err != nil {
		fmt.Fprintf(stderr, "init failed: %v\n", err)
		return 1
	}
	defer subs.Close()

	res, err := subs.promoter.RunPass(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "corroboration pass failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "scanned %d provisional links, promoted %d\n",
		res.Scanned, res.Promoted)
	for _, id := range res.StillProvisional {
		fmt.Fprintf(stdout, "  window elapsed, needs review: %s\n", id)
	}
	for _, ferr := range res.Failures {
		fmt.Fprintf(stderr, "  scan error: %v\n", ferr)
	}
	return 0
}

func runIndexCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dayFlag := fs.String("day", "", "UTC day to compute (YYYY-MM-DD, default today)")
	weightsPath := fs.String("weights", "", "JSON weight configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	asOf := time.Now().UTC()
	if *dayFlag != "" {
		parsed, err := time.Parse(dayFormat, *dayFlag)
		if err != nil {
			fmt.Fprintf(stderr, "invalid --day %q: %v\n", *dayFlag, err)
			return 2
		}
		asOf = parsed
	}

	weights := defaultWeights()
	if *weightsPath != "" {
		data, err := os.ReadFile(*weightsPath)
		if err != nil {
			fmt.Fprintf(stderr, "weights file unreadable: %v\n", err)
			return 1
		}
		if err := json.Unmarshal(data, &weights); err != nil {
			fmt.Fprintf(stderr, "weights file invalid: %v\n", err)
			return 1
		}
	}

	ctx := context.Background()
	subs, err := initSubsystems(ctx, config.Load())
	if err != nil {
		fmt.Fprintf(stderr, "init failed: %v\n", err)
		return 1
	}
	defer subs.Close()

	snap, err := subs.aggregator.ComputeIndex(ctx, asOf, weights)
	if err != nil {
		fmt.Fprintf(stderr, "index computation failed: %v\n", err)
		return 1
	}
	return printJSON(stdout, stderr, snap)
}

func runPublisherCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("publisher", flag.ContinueOnError)
	fs.SetOutput(stderr)
	publisher := fs.String("publisher", "", "publisher domain to score (required)")
	dayFlag := fs.String("day", "", "UTC day to score (YYYY-MM-DD, default today)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *publisher == "" {
		fmt.Fprintln(stderr, "publisher requires --publisher")
		fs.Usage()
		return 2
	}

	day := time.Now().UTC()
	if *dayFlag != "" {
		parsed, err := time.Parse(dayFormat, *dayFlag)
		if err != nil {
			fmt.Fprintf(stderr, "invalid --day %q: %v\n", *dayFlag, err)
			return 2
		}
		day = parsed
	}

	ctx := context.Background()
	subs, err := initSubsystems(ctx, config.Load())
	if err != nil {
		fmt.Fprintf(stderr, "init failed: %v\n", err)
		return 1
	}
	defer subs.Close()

	snap, err := subs.estimator.ComputeSnapshot(ctx, *publisher, day)
	if err != nil {
		fmt.Fprintf(stderr, "publisher scoring failed: %v\n", err)
		return 1
	}
	return printJSON(stdout, stderr, snap)
}

// runRoadmapCmd is pure date arithmetic and never touches storage.
func runRoadmapCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("roadmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	predictedFlag := fs.String("predicted", "", "predicted milestone date (YYYY-MM-DD, required)")
	observedFlag := fs.String("observed", "", "observed milestone date (YYYY-MM-DD, empty when unobserved)")
	window := fs.Int("window", 0, "tolerance window in days (default 30)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *predictedFlag == "" {
		fmt.Fprintln(stderr, "roadmap requires --predicted")
		fs.Usage()
		return 2
	}

	predicted, err := time.Parse(dayFormat, *predictedFlag)
	if err != nil {
		fmt.Fprintf(stderr, "invalid --predicted %q: %v\n", *predictedFlag, err)
		return 2
	}
	var observed *time.Time
	if *observedFlag != "" {
		parsed, err := time.Parse(dayFormat, *observedFlag)
		if err != nil {
			fmt.Fprintf(stderr, "invalid --observed %q: %v\n", *observedFlag, err)
			return 2
		}
		observed = &parsed
	}

	status := roadmap.Classify(predicted, observed, *window)
	fmt.Fprintln(stdout, string(status))
	return 0
}

// runDoctorCmd checks the deployment without mutating anything.
func runDoctorCmd(stdout, stderr io.Writer) int {
	cfg := config.Load()
	healthy := true

	check := func(name string, err error) {
		if err != nil {
			healthy = false
			fmt.Fprintf(stdout, "  %sFAIL%s %s: %v\n", ColorBold, ColorReset, name, err)
			return
		}
		fmt.Fprintf(stdout, "  %sOK%s   %s\n", ColorGreen, ColorReset, name)
	}

	fmt.Fprintf(stdout, "%sVANTAGE doctor%s\n", ColorBold+ColorBlue, ColorReset)

	check("storage", func() error {
		if cfg.DatabaseURL != "" {
			return nil // connectivity is verified at server start
		}
		lite, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return err
		}
		return lite.Close()
	}())

	check("signpost manifest", func() error {
		_, err := os.Stat(cfg.SignpostManifest)
		return err
	}())

	if cfg.RedisAddr == "" {
		fmt.Fprintf(stdout, "  %sSKIP%s cache invalidation (REDIS_ADDR unset)\n", ColorGray, ColorReset)
	} else {
		fmt.Fprintf(stdout, "  %sOK%s   cache invalidation configured (%s)\n",
			ColorGreen, ColorReset, cfg.RedisAddr)
	}

	if !healthy {
		fmt.Fprintln(stderr, "doctor found problems")
		return 1
	}
	return 0
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "encode failed: %v\n", err)
		return 1
	}
	return 0
}

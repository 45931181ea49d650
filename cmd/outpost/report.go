package main

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ironforge/outpost/internal/world"
)

// printReport writes the end-of-run summary with locale-aware numbers.
func printReport(lang string, w *world.State, stats *runStats, digest, reason string) {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	printSection("report")
	p.Printf("  stopped:          %s\n", reason)
	p.Printf("  phase:            %s\n", w.Run.Phase)
	p.Printf("  ticks:            %d\n", w.Tick)
	p.Printf("  waves:            %d started, %d completed\n", w.Threat.Telemetry.WavesStarted, w.Threat.Telemetry.WavesCompleted)
	p.Printf("  raids:            %d\n", stats.raids)
	p.Printf("  enemies:          %d spawned, %d destroyed\n", w.Threat.Telemetry.EnemiesSpawned, stats.kills)
	p.Printf("  base integrity:   %d\n", w.BaseIntegrity())
	p.Printf("  currency:         %d\n", w.Economy.Currency)
	p.Printf("  rejected builds:  %d\n", stats.rejected)
	p.Printf("  bottlenecks:      %d\n", stats.bottlenecks)
	p.Printf("  digest:           %s\n", digest)
	p.Println()
}

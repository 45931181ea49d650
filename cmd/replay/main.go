// Command replay runs a simulation headless, as fast as possible, and
// prints the final world digest. Two replays of the same seed, difficulty
// and command log print the same digest, and so does a replay split at a
// snapshot and resumed with the same log.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ironforge/outpost/internal/command"
	"github.com/ironforge/outpost/internal/core/event"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/engine"
	"github.com/ironforge/outpost/internal/scripting"
	"github.com/ironforge/outpost/internal/snapshot"
	"github.com/ironforge/outpost/internal/world"
)

type options struct {
	seed       uint64
	difficulty string
	commands   string
	ticks      uint64
	from       string
	snapshot   string
	catalog    string
	scripts    string
	expect     string
	lang       string
}

func main() {
	var o options
	flag.Uint64Var(&o.seed, "seed", 1, "run seed (ignored with -from)")
	flag.StringVar(&o.difficulty, "difficulty", "normal", "difficulty preset (ignored with -from)")
	flag.StringVar(&o.commands, "commands", "", "JSONL command log to queue")
	flag.Uint64Var(&o.ticks, "ticks", 3000, "ticks to simulate")
	flag.StringVar(&o.from, "from", "", "snapshot to resume from")
	flag.StringVar(&o.snapshot, "snapshot", "", "write the final snapshot here")
	flag.StringVar(&o.catalog, "catalog", "", "catalog YAML (default: embedded)")
	flag.StringVar(&o.scripts, "scripts", "", "directory of Lua tuning overrides")
	flag.StringVar(&o.expect, "expect", "", "exit 1 unless the final digest matches")
	flag.StringVar(&o.lang, "lang", "en", "locale for the summary")
	flag.Parse()

	if _, err := replay(o, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

// replay runs o and returns the final digest. With -from, the command log
// is filtered so commands that already ran or already wait in the
// snapshot's queue are not applied twice.
func replay(o options, out io.Writer) (string, error) {
	cat, err := data.DefaultCatalog()
	if o.catalog != "" {
		cat, err = data.LoadCatalog(o.catalog)
	}
	if err != nil {
		return "", fmt.Errorf("catalog: %w", err)
	}
	tuning, err := scripting.NewEngine(o.scripts, zap.NewNop())
	if err != nil {
		return "", fmt.Errorf("scripting: %w", err)
	}
	defer tuning.Close()

	var eng *engine.Engine
	if o.from != "" {
		_, snap, err := snapshot.ReadFile(o.from)
		if err != nil {
			return "", fmt.Errorf("read snapshot: %w", err)
		}
		if eng, err = engine.New(cat, tuning, snap.World, nil); err != nil {
			return "", err
		}
		if err := eng.Load(snap); err != nil {
			return "", err
		}
	} else {
		w, err := world.Bootstrap(cat, world.Options{Difficulty: o.difficulty, Seed: o.seed})
		if err != nil {
			return "", fmt.Errorf("bootstrap: %w", err)
		}
		if eng, err = engine.New(cat, tuning, w, nil); err != nil {
			return "", err
		}
	}

	if o.commands != "" {
		f, err := os.Open(o.commands)
		if err != nil {
			return "", err
		}
		cmds, err := command.ParseLog(f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("command log: %w", err)
		}
		eng.Enqueue(eng.FreshCommands(cmds)...)
	}

	counts := map[event.Kind]int{}
	eng.Bus().SubscribeBatch(func(evs []event.Event) {
		for _, ev := range evs {
			counts[ev.Kind]++
		}
	})
	start := eng.Tick()
	for eng.Tick() < start+o.ticks {
		eng.Step()
	}

	if o.snapshot != "" {
		if _, err := snapshot.WriteFile(o.snapshot, eng.MakeSnapshot()); err != nil {
			return "", fmt.Errorf("write snapshot: %w", err)
		}
	}
	digest, err := snapshot.Digest(eng.World())
	if err != nil {
		return "", err
	}

	tag, perr := language.Parse(o.lang)
	if perr != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	w := eng.World()
	p.Fprintf(out, "tick=%d phase=%s wave=%d integrity=%d currency=%d\n", w.Tick, w.Run.Phase, w.Threat.WaveIndex, w.BaseIntegrity(), w.Economy.Currency)
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		p.Fprintf(out, "  %-24s %d\n", k, counts[event.Kind(k)])
	}
	fmt.Fprintln(out, digest)

	if o.expect != "" && o.expect != digest {
		return digest, fmt.Errorf("digest mismatch: got %s, want %s", digest, o.expect)
	}
	return digest, nil
}

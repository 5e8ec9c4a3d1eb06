package main

import (
	"context"
	"fmt"

	"owlrules/internal/bridge"
	"owlrules/internal/builtin"
	"owlrules/internal/builtin/swrlb"
	"owlrules/internal/config"
	"owlrules/internal/engine"
	"owlrules/internal/engine/native"
	"owlrules/internal/loader"
	"owlrules/internal/logging"
	"owlrules/internal/mangle"
	"owlrules/internal/ontology"
	"owlrules/internal/reasoner"
	"owlrules/internal/term"
)

// app is one store and bridge with the documents loaded into it.
type app struct {
	store    *ontology.MemoryStore
	prefixes *term.Prefixes
	bridge   *bridge.Bridge
	builtIns *builtin.Registry
	summary  loader.Summary
}

// newApp wires the configured collaborators and loads paths.
func newApp(ctx context.Context, cfg *config.Config, paths []string) (*app, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no documents given")
	}
	engines := engine.NewRegistry()
	if err := engines.Register(native.New()); err != nil {
		return nil, err
	}
	if err := engines.Register(mangle.NewBackend(cfg.Mangle)); err != nil {
		return nil, err
	}
	if err := engines.SetDefault(cfg.Bridge.Engine); err != nil {
		return nil, err
	}

	var rsn reasoner.Reasoner = reasoner.None{}
	if cfg.Bridge.RL {
		rl, err := reasoner.NewRL(cfg.Mangle)
		if err != nil {
			return nil, err
		}
		rsn = rl
	}

	store := ontology.NewMemoryStore()
	builtIns := swrlb.NewRegistry()
	b, err := bridge.New(bridge.Config{
		Store:     store,
		Engines:   engines,
		BuiltIns:  builtIns,
		Reasoner:  rsn,
		MaxPasses: cfg.Bridge.MaxPasses,
	})
	if err != nil {
		return nil, err
	}

	a := &app{store: store, prefixes: cfg.NewPrefixes(), bridge: b, builtIns: builtIns}
	a.summary, err = loader.New(store, a.prefixes, b).LoadAll(ctx, paths...)
	if err != nil {
		return nil, err
	}
	logging.Get(logging.CategoryBoot).Info("loaded %d documents: %d facts, %d rules, %d queries",
		a.summary.Documents, a.summary.Facts, a.summary.Rules, a.summary.Queries)
	return a, nil
}

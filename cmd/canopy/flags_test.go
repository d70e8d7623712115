package main

import "testing"

// The record and inspect sides must agree on where runs live, or a
// recorded run is invisible to `runs list` without extra flags.
func TestRecordAndInspectStoreDefaultsAgree(t *testing.T) {
	runStore := runCmd.Flags().Lookup("store")
	if runStore == nil {
		t.Fatal("run has no --store flag")
	}
	runsStore := runsCmd.PersistentFlags().Lookup("store")
	if runsStore == nil {
		t.Fatal("runs has no --store flag")
	}
	if runStore.DefValue != runsStore.DefValue {
		t.Fatalf("run --store defaults to %q but runs --store defaults to %q", runStore.DefValue, runsStore.DefValue)
	}
}

func TestStoreFlagsCarryMiddlewareOptions(t *testing.T) {
	for name, lookup := range map[string]func(string) bool{
		"run":   func(f string) bool { return runCmd.Flags().Lookup(f) != nil },
		"serve": func(f string) bool { return serveCmd.Flags().Lookup(f) != nil },
		"runs":  func(f string) bool { return runsCmd.PersistentFlags().Lookup(f) != nil },
	} {
		for _, flag := range []string{"encrypt-key", "mask"} {
			if !lookup(flag) {
				t.Errorf("%s is missing --%s", name, flag)
			}
		}
	}
}

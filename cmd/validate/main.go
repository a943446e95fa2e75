// Command validate performs integrity checks across the correlator's
// on-disk state: the observation log, the processing ledger, the gateway
// link index, and the duct-profile artifacts. It verifies that every ledger
// entry has a matching link artifact, that artifact references resolve, and
// that the log itself decodes cleanly.
//
// Usage:
//
//	go run ./cmd/validate -data-dir ./data
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
	"github.com/couchcryptid/duct-correlation-service/internal/obslog"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func main() {
	dataDir := flag.String("data-dir", "./data", "correlator data directory")
	flag.Parse()

	logPath := filepath.Join(*dataDir, "helium_gateway_data.csv")
	ledgerPath := filepath.Join(*dataDir, "ledger.json")
	artifactDir := filepath.Join(*dataDir, "artifacts")

	phases := []*phase{
		checkObservationLog(logPath),
		checkLedger(ledgerPath),
		checkLinks(artifactDir),
		checkLedgerLinkConsistency(ledgerPath, artifactDir),
	}

	failed := false
	for _, p := range phases {
		if len(p.errors) == 0 {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func checkObservationLog(path string) *phase {
	p := &phase{name: "observation log"}

	store := obslog.NewStore(path, slog.Default())
	obs, err := store.Load()
	if err != nil {
		p.errorf("load: %v", err)
		return p
	}

	for i, o := range obs {
		if o.GatewayID == "" {
			p.errorf("row %d: empty gateway ID", i+1)
		}
		if o.Gateway.Lat < -90 || o.Gateway.Lat > 90 || o.Gateway.Lon < -180 || o.Gateway.Lon > 180 {
			p.errorf("row %d: gateway coordinates out of range", i+1)
		}
	}

	groups := domain.GroupObservations(obs)
	fmt.Printf("     %d observations across %d gateways\n", len(obs), len(groups))
	return p
}

func checkLedger(path string) *phase {
	p := &phase{name: "processing ledger"}

	ledger, err := readLedger(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p // no ledger yet is a valid state
		}
		p.errorf("read: %v", err)
		return p
	}

	for subject, dates := range ledger {
		if subject == "" {
			p.errorf("empty subject key")
		}
		for _, d := range dates {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				p.errorf("subject %s: bad date %q", subject, d)
			}
		}
	}
	return p
}

func checkLinks(artifactDir string) *phase {
	p := &phase{name: "gateway link index"}

	links, err := readLinks(artifactDir)
	if err != nil {
		if os.IsNotExist(err) {
			return p
		}
		p.errorf("read: %v", err)
		return p
	}

	for id, link := range links {
		for date, ref := range link.Graphs {
			path := filepath.Join(artifactDir, ref)
			raw, err := os.ReadFile(path)
			if err != nil {
				p.errorf("gateway %s date %s: artifact %s unreadable: %v", id, date, ref, err)
				continue
			}
			var profile domain.DuctProfile
			if err := json.Unmarshal(raw, &profile); err != nil {
				p.errorf("gateway %s date %s: artifact %s corrupt: %v", id, date, ref, err)
				continue
			}
			if profile.Date != date {
				p.errorf("gateway %s: artifact %s date mismatch (%s)", id, ref, profile.Date)
			}
			if profile.StationID != link.StationID {
				p.errorf("gateway %s: artifact %s station mismatch (%s vs %s)", id, ref, profile.StationID, link.StationID)
			}
		}
	}
	return p
}

// checkLedgerLinkConsistency verifies the success-only marking invariant
// from the other side: every (gateway, date) the ledger calls done must have
// an emitted link artifact reference.
func checkLedgerLinkConsistency(ledgerPath, artifactDir string) *phase {
	p := &phase{name: "ledger/link consistency"}

	ledger, err := readLedger(ledgerPath)
	if err != nil {
		if !os.IsNotExist(err) {
			p.errorf("read ledger: %v", err)
		}
		return p
	}
	links, err := readLinks(artifactDir)
	if err != nil && !os.IsNotExist(err) {
		p.errorf("read links: %v", err)
		return p
	}

	for subject, dates := range ledger {
		link, ok := links[subject]
		if !ok {
			p.errorf("ledger subject %s has no link entry", subject)
			continue
		}
		for _, d := range dates {
			if _, ok := link.Graphs[d]; !ok {
				p.errorf("ledger marks %s/%s done but link has no artifact for it", subject, d)
			}
		}
	}
	return p
}

func readLedger(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ledger map[string][]string
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

func readLinks(artifactDir string) (map[string]domain.GatewayLink, error) {
	raw, err := os.ReadFile(filepath.Join(artifactDir, "links.json"))
	if err != nil {
		return nil, err
	}
	var links map[string]domain.GatewayLink
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, err
	}
	return links, nil
}

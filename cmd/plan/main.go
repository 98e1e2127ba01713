// Command plan answers one journey query offline against a topology file and
// prints the ranked itineraries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/transit-planner/internal/logging"
	"github.com/signalsfoundry/transit-planner/kb"
	"github.com/signalsfoundry/transit-planner/model"
	"github.com/signalsfoundry/transit-planner/planner"
	"github.com/signalsfoundry/transit-planner/timectrl"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "plan:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(out)
	topology := fs.String("topology", "configs/network.json", "Path to the network topology JSON")
	from := fs.String("from", "", "Origin station name or code")
	to := fs.String("to", "", "Destination station name or code")
	at := fs.String("at", "", "Planning time in RFC3339 (default now)")
	sortBy := fs.String("sort", "fastest", "Ranking: fastest, fewest_changes, lowest_fare or least_walking")
	maxChanges := fs.Int("max-changes", planner.DefaultMaxChanges, "Maximum number of interchanges")
	avoidZoneOne := fs.Bool("avoid-zone-one", false, "Only return journeys that stay outside zone 1")
	limit := fs.Int("n", 3, "Number of journeys to print")
	verbose := fs.Bool("v", false, "Log planner progress to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" || *to == "" {
		return errors.New("-from and -to are required")
	}

	f, err := os.Open(*topology)
	if err != nil {
		return err
	}
	network, err := kb.LoadTopology(f)
	f.Close()
	if err != nil {
		return err
	}

	origin, err := resolveStation(network, *from)
	if err != nil {
		return err
	}
	destination, err := resolveStation(network, *to)
	if err != nil {
		return err
	}
	sortKey, err := planner.ParseSortKey(*sortBy)
	if err != nil {
		return err
	}

	var clock timectrl.Clock = timectrl.SystemClock{}
	if *at != "" {
		when, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("-at: %w", err)
		}
		clock = timectrl.NewManualClock(when)
	}
	log := logging.Noop()
	if *verbose {
		log = logging.New(logging.Config{Level: "debug", Format: "text", Output: os.Stderr})
	}

	p, err := planner.NewPlanner(network, planner.WithClock(clock), planner.WithLogger(log))
	if err != nil {
		return err
	}
	filters := planner.DefaultFilters()
	filters.MaxChanges = *maxChanges
	filters.AvoidZoneOne = *avoidZoneOne
	res, err := p.Plan(ctx, planner.Query{
		From:        planner.StationLocation{At: origin},
		To:          planner.StationLocation{At: destination},
		Filters:     filters,
		Preferences: planner.Preferences{SortKey: sortKey, Travelcard: model.TravelcardAdult},
	})
	if err != nil {
		return err
	}

	if len(res.Journeys) == 0 {
		fmt.Fprintf(out, "No journeys from %s to %s.\n", origin.Name, destination.Name)
		return nil
	}
	for i, j := range res.Journeys {
		if i == *limit {
			break
		}
		printJourney(out, i+1, j)
	}
	return nil
}

// resolveStation accepts a station code or an unambiguous name fragment.
func resolveStation(network *kb.Network, s string) (*model.Station, error) {
	if code, err := strconv.Atoi(s); err == nil {
		return network.Station(code)
	}
	matches := network.SearchStations(s)
	for _, st := range matches {
		if strings.EqualFold(st.Name, s) {
			return st, nil
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q", kb.ErrStationNotFound, s)
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, st := range matches {
		names[i] = st.Name
	}
	return nil, fmt.Errorf("%q is ambiguous: %s", s, strings.Join(names, ", "))
}

func printJourney(out io.Writer, n int, j *planner.Journey) {
	zones := make([]string, 0, len(j.Zones()))
	for _, z := range j.Zones() {
		zones = append(zones, z.String())
	}
	fmt.Fprintf(out, "%d. %s, %d change(s), zones %s, %s\n",
		n, j.Duration(), j.Interchanges(), strings.Join(zones, ","), j.WorstSeverity())
	for i := range j.Instructions {
		in := &j.Instructions[i]
		switch in.Kind {
		case planner.KindPlatform:
			fmt.Fprintf(out, "   at %s take the %s line %s\n", in.From().Name, in.Line.DisplayName(), in.Direction)
		case planner.KindRide:
			fmt.Fprintf(out, "   ride %d stop(s) to %s (%s)\n", len(in.Stations)-1, in.To().Name, time.Duration(in.Seconds)*time.Second)
		case planner.KindExit:
			if in.DoorSide != "" {
				fmt.Fprintf(out, "   leave at %s, doors open on the %s\n", in.From().Name, in.DoorSide)
			} else {
				fmt.Fprintf(out, "   leave at %s\n", in.From().Name)
			}
		case planner.KindWalking:
			fmt.Fprintf(out, "   walk from %s to %s (%s)\n", in.From().Name, in.To().Name, time.Duration(in.Seconds)*time.Second)
		}
	}
}

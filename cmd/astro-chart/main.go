// Command astro-chart prints a natal report, and optionally transits or a
// solar return, for one set of birth data.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/astro-aspects/core"
	"github.com/signalsfoundry/astro-aspects/ephem"
	"github.com/signalsfoundry/astro-aspects/internal/chartsvc"
	"github.com/signalsfoundry/astro-aspects/internal/logging"
	"github.com/signalsfoundry/astro-aspects/kb"
	"github.com/signalsfoundry/astro-aspects/model"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "astro-chart:", err)
		os.Exit(1)
	}
}

type options struct {
	name        string
	birth       model.BirthData
	houseSystem string
	orb         float64
	motion      string
	demo        bool
	format      string
	transitsAt  string
	solarReturn int
	verbose     bool
}

// output is what gets printed in json and yaml form.
type output struct {
	Natal       *chartsvc.NatalReport       `json:"natal" yaml:"natal"`
	Transits    *chartsvc.TransitReport     `json:"transits,omitempty" yaml:"transits,omitempty"`
	SolarReturn *chartsvc.SolarReturnReport `json:"solar_return,omitempty" yaml:"solar_return,omitempty"`
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("astro-chart", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.name, "name", "Chart", "Name printed in the report header")
	fs.StringVar(&o.birth.Date, "date", "", "Birth date, YYYY-MM-DD")
	fs.StringVar(&o.birth.Time, "time", "", "Birth time, HH:MM (default local noon)")
	fs.StringVar(&o.birth.TimeZone, "tz", "UTC", "IANA time zone of the birth time")
	fs.Float64Var(&o.birth.Location.Latitude, "lat", 0, "Birth latitude in degrees, north positive")
	fs.Float64Var(&o.birth.Location.Longitude, "lon", 0, "Birth longitude in degrees, east positive")
	fs.StringVar(&o.houseSystem, "house", string(ephem.DefaultHouseSystem), "House system: whole_sign, equal or porphyry")
	fs.Float64Var(&o.orb, "orb", core.DefaultOrbTolerance, "Orb tolerance in degrees")
	fs.StringVar(&o.motion, "unknown-motion", "applying", "Applying flag when a speed is unknown: applying or separating")
	fs.BoolVar(&o.demo, "demo", false, "Use the built-in demo chart instead of computing positions")
	fs.StringVar(&o.format, "format", "text", "Output format: text, json or yaml")
	fs.StringVar(&o.transitsAt, "transits", "", "Also list transits at this RFC 3339 time, or \"now\"")
	fs.IntVar(&o.solarReturn, "solar-return", 0, "Also cast the solar return for this year")
	fs.BoolVar(&o.verbose, "v", false, "Log engine activity to stderr")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.demo && o.birth.Date == "" {
		epoch := ephem.DemoChart().Epoch
		o.birth = model.BirthData{
			Date:     epoch.Format("2006-01-02"),
			Time:     epoch.Format("15:04"),
			TimeZone: "UTC",
			Location: model.Location{Latitude: 51.5, Longitude: -0.12, Name: "Demo"},
		}
		if o.name == "Chart" {
			o.name = "Demo"
		}
	}
	if o.birth.Date == "" {
		return o, errors.New("-date is required unless -demo is set")
	}
	if o.orb <= 0 || o.orb > core.MaxOrbTolerance {
		return o, fmt.Errorf("-orb %v must be in (0, %v]", o.orb, core.MaxOrbTolerance)
	}
	switch o.format {
	case "text", "json", "yaml":
	default:
		return o, fmt.Errorf("unknown -format %q", o.format)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	hs, err := ephem.ParseHouseSystem(o.houseSystem)
	if err != nil {
		return err
	}
	motion, err := core.ParseMotionDefault(o.motion)
	if err != nil {
		return err
	}

	var resolver ephem.Resolver = ephem.NewAnalytic()
	if o.demo {
		resolver = ephem.DemoChart()
	}
	log := logging.Noop()
	if o.verbose {
		log = logging.New(logging.Config{Level: "debug", Output: os.Stderr, Service: "astro-chart"})
	}

	settings := chartsvc.DefaultSettings()
	settings.OrbTolerance = o.orb
	settings.HouseSystem = hs
	settings.UnknownMotion = motion
	svc := chartsvc.New(kb.NewChartStore(), resolver, chartsvc.WithSettings(settings), chartsvc.WithLogger(log))

	subj, err := svc.CreateSubject(ctx, o.name, o.birth)
	if err != nil {
		return err
	}
	var out output
	if out.Natal, err = svc.NatalReport(ctx, subj.ID, 0); err != nil {
		return err
	}
	if o.transitsAt != "" {
		at := time.Now()
		if o.transitsAt != "now" {
			if at, err = time.Parse(time.RFC3339, o.transitsAt); err != nil {
				return fmt.Errorf("-transits: %w", err)
			}
		}
		if out.Transits, err = svc.Transits(ctx, subj.ID, at, 0); err != nil {
			return err
		}
	}
	if o.solarReturn != 0 {
		if out.SolarReturn, err = svc.SolarReturn(ctx, subj.ID, o.solarReturn, 0); err != nil {
			return err
		}
	}

	switch o.format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		// Round-trip through JSON so yaml keys follow the json tags.
		raw, err := json.Marshal(out)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return printText(stdout, out)
	}
}

func printText(w io.Writer, out output) error {
	r := out.Natal
	c := r.Chart
	fmt.Fprintf(w, "%s  %s  (%s houses)\n", r.Name, c.Moment.Format(time.RFC3339), c.HouseSystem)
	fmt.Fprintf(w, "ASC %s  MC %s\n\n", formatLongitude(c.Ascendant), formatLongitude(c.Midheaven))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BODY\tPOSITION\tHOUSE\tSPEED\t")
	for _, b := range c.Bodies {
		speed := "?"
		if s, ok := b.Speed(); ok {
			speed = fmt.Sprintf("%+.3f", s)
			if b.IsRetrograde {
				speed += " R"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t\n", b.Body, formatLongitude(b.AbsoluteDegree), b.House, speed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAspects (%d)\n", len(r.Aspects))
	printAspects(w, r.Aspects)

	if len(r.Patterns)+len(r.Stelliums) > 0 {
		fmt.Fprintln(w, "\nPatterns")
		for _, p := range append(append([]model.AspectPattern{}, r.Patterns...), r.Stelliums...) {
			names := make([]string, len(p.Members))
			for i, m := range p.Members {
				names[i] = string(m.Body)
			}
			extra := ""
			switch {
			case p.Element != "":
				extra = " (" + string(p.Element) + ")"
			case p.Sign != nil:
				extra = " (" + p.Sign.String() + ")"
			}
			fmt.Fprintf(w, "  %s%s: %s\n", p.Type, extra, strings.Join(names, ", "))
		}
	}

	if r.MoonPhase != nil {
		fmt.Fprintf(w, "\nMoon phase: %s (%.1f°)\n", r.MoonPhase.Name, r.MoonPhase.Elongation)
	}
	fmt.Fprintf(w, "Dignities: %d strong, %d weak\n", len(r.Dignities.Strong), len(r.Dignities.Weak))

	if t := out.Transits; t != nil {
		fmt.Fprintf(w, "\nTransits at %s (%d, %d applying)\n", t.Moment.Format(time.RFC3339), len(t.Aspects), len(t.Applying))
		printAspects(w, t.Aspects)
	}
	if sr := out.SolarReturn; sr != nil {
		fmt.Fprintf(w, "\nSolar return %d: %s\n", sr.Year, sr.Moment.Format(time.RFC3339))
		fmt.Fprintf(w, "ASC %s  MC %s\n", formatLongitude(sr.Chart.Ascendant), formatLongitude(sr.Chart.Midheaven))
	}
	return nil
}

func printAspects(w io.Writer, aspects []model.Aspect) {
	for _, a := range aspects {
		motion := "separating"
		if a.Applying {
			motion = "applying"
		}
		if !a.MotionKnown {
			motion += "?"
		}
		fmt.Fprintf(w, "  %-18s %-11s %-18s orb %.2f  %s\n", a.BodyA, a.Type, a.BodyB, a.Orb, motion)
	}
}

func formatLongitude(lon float64) string {
	sign := core.SignOf(lon)
	deg := core.NormalizeDegrees(lon) - float64(sign)*30
	return fmt.Sprintf("%5.2f° %s", deg, sign)
}

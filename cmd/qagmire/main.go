// Command qagmire runs one quality-assurance check over a night of WEAVE
// survey data and reports the failures. The exit code is non-zero when any
// test failed, so the command can gate pipeline stages.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/weave-qa/qagmire/internal/config"
	"github.com/weave-qa/qagmire/internal/dataset"
	"github.com/weave-qa/qagmire/internal/diagnostics"
	"github.com/weave-qa/qagmire/internal/diagnostics/checks"
	"github.com/weave-qa/qagmire/internal/report"
	"github.com/weave-qa/qagmire/internal/store"
	"github.com/weave-qa/qagmire/internal/survey"
	"github.com/weave-qa/qagmire/internal/version"
)

func main() {
	root := flag.String("root", ".", "Survey data root directory")
	cache := flag.String("cache", "qagmire.db", "SQLite cache/run database path (empty disables)")
	check := flag.String("check", "conditions", "Check to run: conditions, rawvalues, l1values or skynoise")
	date := flag.String("date", "", "Observing night to select (yyyymmdd, empty for all)")
	runid := flag.String("runid", "", "Run identifier to select (empty for all)")
	camera := flag.String("camera", "", "Limit l1values/skynoise to one camera: RED or BLUE")
	byExposure := flag.Bool("by-exposure", false, "Group the conditions check by exposure instead of by OB")
	stack := flag.Bool("stack", false, "Check stacked L1 spectra instead of singles")
	workers := flag.Int("workers", 0, "Parallel file readers (0 takes the thresholds value)")
	thresholds := flag.String("thresholds", "", "Threshold JSON file (empty for defaults)")
	full := flag.Bool("full", false, "Print the complete element x test matrix")
	perTest := flag.Bool("per-test", false, "Print the per-test failure counts")
	showStats := flag.Bool("stats", false, "Print the auxiliary statistics table")
	htmlOut := flag.String("html", "", "Write an HTML chart page to this path")
	plotOut := flag.String("plot", "", "Write a PNG plot of one statistic to this path")
	plotStat := flag.String("plot-stat", "", "Statistic column for -plot")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := config.EmptyThresholds()
	if *thresholds != "" {
		var err error
		cfg, err = config.LoadThresholds(*thresholds)
		if err != nil {
			log.Fatalf("failed to load thresholds: %v", err)
		}
	}
	if *workers == 0 {
		*workers = cfg.GetWorkers()
	}

	var st *store.Store
	if *cache != "" {
		var err error
		st, err = store.Open(*cache)
		if err != nil {
			log.Fatalf("failed to open cache database: %v", err)
		}
		defer st.Close()
	}

	headers := survey.HeaderLoader{
		Locator: survey.NewLocator(*root, nil),
		Store:   st,
		Workers: *workers,
	}

	cam := dataset.Camera(*camera)
	if cam != "" && cam != dataset.CameraRed && cam != dataset.CameraBlue {
		log.Fatalf("unknown camera %q (want RED or BLUE)", *camera)
	}

	runner, sel, err := buildRunner(*check, cfg, headers, cam, *byExposure, *stack, *date, *runid)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := runner.Run(context.Background(), sel); err != nil {
		log.Fatalf("run failed: %v", err)
	}

	if err := printReports(runner, *full, *perTest, *showStats); err != nil {
		log.Fatalf("reporting failed: %v", err)
	}
	if err := writeArtifacts(runner, *htmlOut, *plotOut, *plotStat); err != nil {
		log.Fatalf("%v", err)
	}
	if st != nil {
		if err := persistRun(st, runner); err != nil {
			log.Fatalf("failed to persist run: %v", err)
		}
	}

	if runner.NFailures() > 0 {
		os.Exit(1)
	}
}

// buildRunner assembles the requested check with its loader and selection.
func buildRunner(check string, cfg *config.Thresholds, headers survey.HeaderLoader,
	camera dataset.Camera, byExposure, stack bool, date, runid string) (*diagnostics.Runner, survey.Selection, error) {

	l1Sel := survey.L1Single(date, runid)
	if stack {
		l1Sel = survey.L1Stack(date, runid)
	}

	switch check {
	case "conditions":
		grouping := diagnostics.GroupByOB
		if byExposure {
			grouping = diagnostics.GroupByExposure
		}
		c := &checks.ObservingConditions{
			SkyTolerance:    cfg.GetSkyTolerance(),
			SeeingTolerance: cfg.GetSeeingTolerance(),
			Grouping:        grouping,
		}
		return c.Runner(&headers), survey.RawSingle(date, runid), nil

	case "rawvalues":
		c := &checks.RawValues{
			SaturationThreshold: cfg.GetSaturationThreshold(),
			AllowedSaturated:    cfg.GetAllowedSaturated(),
		}
		return c.Runner(&survey.RawLoader{Headers: headers}), survey.RawSingle(date, runid), nil

	case "l1values":
		c := &checks.L1Values{Camera: camera}
		return c.Runner(&survey.L1Loader{Headers: headers}), l1Sel, nil

	case "skynoise":
		c := &checks.SkyNoise{
			KSProbLimit:   cfg.GetKSProbLimit(),
			MeanSigLimit:  cfg.GetMeanSigLimit(),
			StdevSigLimit: cfg.GetStdevSigLimit(),
			Camera:        camera,
		}
		loader := &survey.L1Loader{
			Headers:    headers,
			Extensions: []string{"FLUX", "IVAR"},
			FibreTable: true,
		}
		return c.Runner(loader), l1Sel, nil
	}
	return nil, survey.Selection{}, fmt.Errorf("unknown check %q (want conditions, rawvalues, l1values or skynoise)", check)
}

func printReports(r *diagnostics.Runner, full, perTest, showStats bool) error {
	s, err := r.Summary()
	if err != nil {
		return err
	}
	if len(s.Elements) == 0 {
		fmt.Println("all tests passed")
	} else {
		fmt.Println(report.SummaryTable(s))
	}

	if perTest {
		tc, err := r.SummaryPerTest()
		if err != nil {
			return err
		}
		fmt.Println(report.PerTestTable(tc))
	}
	if full {
		m, err := r.FullSummary()
		if err != nil {
			return err
		}
		fmt.Println(report.MatrixTable(m))
	}
	if showStats {
		if st := r.Stats(); st != nil {
			fmt.Println(report.StatsTable(r.Elements(), st))
		}
	}
	return nil
}

func writeArtifacts(r *diagnostics.Runner, htmlOut, plotOut, plotStat string) error {
	if htmlOut != "" {
		f, err := os.Create(htmlOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %v", htmlOut, err)
		}
		defer f.Close()
		if err := report.RenderHTML(f, r); err != nil {
			return fmt.Errorf("failed to render charts: %v", err)
		}
		log.Printf("wrote charts to %s", htmlOut)
	}
	if plotOut != "" {
		if plotStat == "" {
			return fmt.Errorf("-plot requires -plot-stat")
		}
		if err := report.SaveStatPlot(plotOut, r.Check, plotStat, r.Stats()); err != nil {
			return err
		}
		log.Printf("wrote plot to %s", plotOut)
	}
	return nil
}

func persistRun(st *store.Store, r *diagnostics.Runner) error {
	doc, err := r.ReportJSON()
	if err != nil {
		return err
	}
	return st.SaveRun(&store.RunRecord{
		ID:        r.ID,
		Check:     r.Check,
		Selection: r.Selection().String(),
		NTests:    int64(len(r.Results())),
		NElements: int64(len(r.Elements())),
		NFailures: int64(r.NFailures()),
		Report:    doc,
	})
}

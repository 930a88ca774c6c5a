package fitctl

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"fitd/pkg/types"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printModels(w io.Writer, format string, models []types.ModelInfo) error {
	if format == "json" {
		return printJSON(w, models)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tLOADED")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%t\n", m.Name, m.SizeBytes, time.Unix(m.ModifiedUnix, 0).UTC().Format(time.RFC3339), m.Loaded)
	}
	return tw.Flush()
}

func printJobs(w io.Writer, format string, jobs []types.JobStatus) error {
	if format == "json" {
		return printJSON(w, jobs)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tSTATE\tROWS\tID\tERROR")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", j.Name, j.Kind, j.State, j.Rows, j.ID, j.Error)
	}
	return tw.Flush()
}

func printStatus(w io.Writer, format string, st types.StatusResponse) error {
	if format == "json" {
		return printJSON(w, st)
	}
	fmt.Fprintf(w, "jobs:    %d/%d active\n", st.ActiveJobs, st.MaxProcesses)
	fmt.Fprintf(w, "loaded:  %d/%d\n", len(st.Loaded), st.MaxLoaded)
	fmt.Fprintf(w, "fits:    %d started, %d failed\n", st.FitsStarted, st.FitsFailed)
	fmt.Fprintf(w, "uptime:  %s\n", (time.Duration(st.UptimeSeconds) * time.Second).String())
	if len(st.Loaded) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tLOADED AT\tPREDICTIONS")
	for _, m := range st.Loaded {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.Kind, time.Unix(m.LoadedAt, 0).UTC().Format(time.RFC3339), strconv.FormatUint(m.Predictions, 10))
	}
	return tw.Flush()
}

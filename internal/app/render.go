package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/gookit/color"
	"github.com/specialistvlad/namedim/internal/dimstack"
	"github.com/specialistvlad/namedim/internal/runner"
	"github.com/vmihailenco/msgpack/v5"
)

func render(w io.Writer, format string, colored bool, reports []scriptReport) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case OutputMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(reports)
	default:
		return renderText(w, colored, reports)
	}
}

func renderText(w io.Writer, colored bool, reports []scriptReport) error {
	for i, sr := range reports {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		heading := fmt.Sprintf("== %s (first available: %d)", sr.Script, sr.Report.FirstAvailable)
		if colored {
			heading = color.Bold.Sprint(heading)
		}
		if _, err := fmt.Fprintln(w, heading); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tOP\tITER\tBINDINGS")
		for _, res := range sr.Report.Results {
			iter := "-"
			if res.Iteration != runner.NoIteration {
				iter = strconv.Itoa(res.Iteration)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Path, res.Op, iter, dimstack.FormatBindings(res.Bindings))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "global: %s\n", dimstack.FormatBindings(sr.Report.Global)); err != nil {
			return err
		}
	}
	return nil
}

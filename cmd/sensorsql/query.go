package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SimonWaldherr/sensorsql"
	"github.com/SimonWaldherr/sensorsql/internal/dataset"
	"github.com/SimonWaldherr/sensorsql/internal/engine"
	"github.com/SimonWaldherr/sensorsql/internal/render"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run one query against a freshly generated dataset",
		Example: `  sensorsql query "SELECT * FROM sensor_data WHERE temperature > 30 ORDER BY temperature DESC LIMIT 5"
  sensorsql query --format csv "SELECT device_id, avg(temperature) FROM sensor_data GROUP BY device_id"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, cfg, _, err := openPlayground(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			format, err := render.ParseFormat(cfg.Render.Format)
			if err != nil {
				return err
			}
			return runQuery(cmd, pg, format, strings.Join(args, " "))
		},
	}
	cmd.Flags().String("format", "table", "output format: table, csv, tsv, json, yaml, markdown, xml")
	return cmd
}

// runQuery prints the result of sql, or its error line. Query errors are
// reported to the user and returned so the exit status reflects them.
func runQuery(cmd *cobra.Command, pg *sensorsql.Playground, format render.Format, sql string) error {
	out := cmd.OutOrStdout()
	res, err := pg.Query(cmd.Context(), sql)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), render.ErrorLine(err))
		return fmt.Errorf("query failed: %s", sensorsql.ErrorKind(err))
	}
	return printResult(out, format, res)
}

func printResult(w io.Writer, format render.Format, res *engine.Result) error {
	if err := render.Write(w, format, &res.ResultSet); err != nil {
		return err
	}
	if format == render.Table || format == render.Markdown {
		fmt.Fprintln(w)
		fmt.Fprintln(w, render.Stats(res))
	}
	return nil
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a sample dataset and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, cfg, _, err := openPlayground(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			format, err := render.ParseFormat(cfg.Render.Format)
			if err != nil {
				return err
			}
			ds := pg.Dataset()
			if err := render.Write(cmd.OutOrStdout(), format, datasetResult(ds)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), render.Generated(ds.Len()))
			return nil
		},
	}
	cmd.Flags().String("format", "table", "output format: table, csv, tsv, json, yaml, markdown, xml")
	return cmd
}

func datasetResult(ds *dataset.Dataset) *engine.ResultSet {
	return &engine.ResultSet{Cols: ds.Cols, Rows: ds.Rows}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/SimonWaldherr/sensorsql"
	"github.com/SimonWaldherr/sensorsql/internal/dataset"
	"github.com/SimonWaldherr/sensorsql/internal/render"
)

const replHelp = `Statements end with ';'.
.help                 this help
.generate [n]         regenerate the dataset (default: current size)
.engine               show the active engine
.format <name>        table, csv, tsv, json, yaml, markdown, xml
.schema               show the sensor_data columns
.examples             sample queries
.quit                 exit`

var exampleQueries = []string{
	"SELECT * FROM sensor_data WHERE temperature > 25 LIMIT 10;",
	"SELECT device_id, avg(temperature) FROM sensor_data GROUP BY device_id;",
	"SELECT * FROM sensor_data WHERE battery_level < 20 ORDER BY battery_level ASC;",
	"SELECT * FROM sensor_data WHERE humidity > 60 AND temperature < 20;",
	"SELECT location, avg(humidity) FROM sensor_data GROUP BY location ORDER BY location;",
}

func replCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive SQL shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, cfg, _, err := openPlayground(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			format, err := render.ParseFormat(cfg.Render.Format)
			if err != nil {
				return err
			}
			r := &repl{ctx: cmd.Context(), pg: pg, out: cmd.OutOrStdout(), format: format}
			if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
				return r.runInteractive()
			}
			return r.run(cmd.InOrStdin())
		},
	}
	cmd.Flags().String("format", "table", "output format: table, csv, tsv, json, yaml, markdown, xml")
	return cmd
}

// repl accumulates input lines into statements and executes them.
type repl struct {
	ctx    context.Context
	pg     *sensorsql.Playground
	out    io.Writer
	format render.Format
	buf    strings.Builder
}

// handle processes one input line and reports whether the session should end.
func (r *repl) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "--") {
		return false
	}
	if r.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		return r.meta(line)
	}
	if r.buf.Len() > 0 {
		r.buf.WriteByte(' ')
	}
	r.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		return false
	}
	sql := r.buf.String()
	r.buf.Reset()

	res, err := r.pg.Query(r.context(), sql)
	if err != nil {
		fmt.Fprintln(r.out, render.ErrorLine(err))
		return false
	}
	if err := printResult(r.out, r.format, res); err != nil {
		fmt.Fprintln(r.out, render.ErrorLine(err))
	}
	return false
}

func (r *repl) context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

func (r *repl) meta(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".help":
		fmt.Fprintln(r.out, replHelp)
	case ".quit", ".exit":
		return true
	case ".engine":
		fmt.Fprintln(r.out, r.pg.Engine().Name())
	case ".generate":
		size := 0
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				fmt.Fprintf(r.out, "Error: invalid size %q\n", fields[1])
				return false
			}
			size = n
		}
		ds := r.pg.Regenerate(size)
		fmt.Fprintln(r.out, render.Generated(ds.Len()))
	case ".format":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, r.format)
			return false
		}
		f, err := render.ParseFormat(fields[1])
		if err != nil {
			fmt.Fprintln(r.out, render.ErrorLine(err))
			return false
		}
		r.format = f
	case ".schema":
		fmt.Fprintf(r.out, "%s(%s)\n", dataset.TableName, strings.Join(dataset.Columns, ", "))
	case ".examples":
		for _, q := range exampleQueries {
			fmt.Fprintln(r.out, q)
		}
	default:
		fmt.Fprintf(r.out, "Error: unknown command %s (try .help)\n", fields[0])
	}
	return false
}

// run reads statements from a non-interactive source such as a file.
func (r *repl) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 1024), 4*1024*1024)
	for sc.Scan() {
		if r.handle(sc.Text()) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	// A final statement without ';' still runs.
	if r.buf.Len() > 0 {
		r.handle(";")
	}
	return nil
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sensorsql_history")
}

func (r *repl) runInteractive() error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		var out []string
		for _, q := range exampleQueries {
			if strings.HasPrefix(strings.ToLower(q), strings.ToLower(line)) {
				out = append(out, q)
			}
		}
		return out
	})

	hist := historyPath()
	if hist != "" {
		if f, err := os.Open(hist); err == nil {
			_, _ = ln.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Fprintf(r.out, "sensorsql REPL (%s engine). End statements with ';'. '.help' for help.\n", r.pg.Engine().Name())
	fmt.Fprintln(r.out, render.Generated(r.pg.Dataset().Len()))
	for {
		prompt := "sql> "
		if r.buf.Len() > 0 {
			prompt = " ... "
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			r.buf.Reset()
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				break
			}
			return err
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if r.handle(line) {
			break
		}
	}

	if hist != "" {
		if f, err := os.Create(hist); err == nil {
			_, _ = ln.WriteHistory(f)
			f.Close()
		}
	}
	return nil
}

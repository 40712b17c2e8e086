package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log/level"
	"github.com/go-sif/segments"
	"github.com/go-sif/segments/exec"
	"github.com/go-sif/segments/frame"
	"github.com/go-sif/segments/models"
)

// keysCommand lists the Keys held by a store server
type keysCommand struct {
	g      *globalFlags
	hidden bool
}

func (cmd *keysCommand) run(_ *kingpin.ParseContext) error {
	opts, err := cmd.g.options()
	if err != nil {
		return err
	}
	client, err := dial(opts)
	if err != nil {
		return err
	}
	defer client.Close()
	keys, err := client.Keys(context.Background(), cmd.hidden)
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

// makeCommand creates a container over segments read from a JSONL file
type makeCommand struct {
	g       *globalFlags
	key     string
	columns []string
	file    string
}

func (cmd *makeCommand) run(_ *kingpin.ParseContext) error {
	ctx := context.Background()
	opts, err := cmd.g.options()
	if err != nil {
		return err
	}
	logger, err := cmd.g.logger(opts)
	if err != nil {
		return err
	}
	f, err := os.Open(cmd.file)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	segsKey, err := segments.MakeHiddenKey()
	if err != nil {
		return err
	}
	segs, err := frame.ReadJSONL(segsKey, f, cmd.columns, opts.ChunkSize)
	if err != nil {
		return err
	}
	client, err := dial(opts)
	if err != nil {
		return err
	}
	defer client.Close()
	key := segments.Key(cmd.key)
	if len(key) == 0 {
		if key, err = segments.MakeKey(); err != nil {
			return err
		}
	}
	executor := exec.New(opts.ExecutorOptions(logger, nil))
	c, err := models.Make(ctx, client, executor, key, segs, opts.ContainerOptions(logger))
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "created container", "key", c.Key(), "segments", c.NumSegments())
	fmt.Println(c.Key())
	return nil
}

// inspectCommand prints the segments of a container alongside their results
type inspectCommand struct {
	g   *globalFlags
	key string
}

func (cmd *inspectCommand) run(_ *kingpin.ParseContext) error {
	ctx := context.Background()
	opts, err := cmd.g.options()
	if err != nil {
		return err
	}
	logger, err := cmd.g.logger(opts)
	if err != nil {
		return err
	}
	client, err := dial(opts)
	if err != nil {
		return err
	}
	defer client.Close()
	executor := exec.New(opts.ExecutorOptions(logger, nil))
	c, err := models.Load(ctx, client, executor, segments.Key(cmd.key), opts.ContainerOptions(logger))
	if err != nil {
		return err
	}
	f, err := c.ToFrame(ctx)
	if err != nil {
		return err
	}
	return printFrame(os.Stdout, f)
}

// printFrame writes a Frame as an aligned table. Newlines within values are
// shown as "; " and missing values as NA.
func printFrame(w io.Writer, f segments.Frame) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(f.Names(), "\t"))
	cols := f.Columns()
	row := make([]string, len(cols))
	for r := int64(0); r < f.NumRows(); r++ {
		for i, col := range cols {
			if col.IsNA(r) {
				row[i] = "NA"
				continue
			}
			v, err := col.AtStr(r)
			if err != nil {
				return err
			}
			row[i] = strings.ReplaceAll(v, "\n", "; ")
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// removeCommand removes a container, and with --cascade everything it owns
type removeCommand struct {
	g       *globalFlags
	key     string
	cascade bool
}

func (cmd *removeCommand) run(_ *kingpin.ParseContext) error {
	ctx := context.Background()
	opts, err := cmd.g.options()
	if err != nil {
		return err
	}
	logger, err := cmd.g.logger(opts)
	if err != nil {
		return err
	}
	client, err := dial(opts)
	if err != nil {
		return err
	}
	defer client.Close()
	executor := exec.New(opts.ExecutorOptions(logger, nil))
	c, err := models.Load(ctx, client, executor, segments.Key(cmd.key), opts.ContainerOptions(logger))
	if err != nil {
		return err
	}
	return c.Remove(ctx, cmd.cascade)
}

func addKeysCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &keysCommand{g: g}
	keys := app.Command("keys", "List the keys held by a store server.").Action(cmd.run)
	keys.Flag("hidden", "Include hidden keys").BoolVar(&cmd.hidden)
}

func addMakeCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &makeCommand{g: g}
	mk := app.Command("make", "Create a result container over segments read from a JSONL file.").Action(cmd.run)
	mk.Flag("key", "Key to register the container under. Defaults to a fresh key.").StringVar(&cmd.key)
	mk.Flag("column", "A JSON path to read as a segment column. Repeatable.").Required().StringsVar(&cmd.columns)
	mk.Arg("file", "The JSONL file holding one segment per line.").Required().ExistingFileVar(&cmd.file)
}

func addInspectCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &inspectCommand{g: g}
	inspect := app.Command("inspect", "Print the segments of a container with their results.").Action(cmd.run)
	inspect.Arg("key", "Key of the container").Required().StringVar(&cmd.key)
}

func addRemoveCommand(app *kingpin.Application, g *globalFlags) {
	cmd := &removeCommand{g: g}
	remove := app.Command("remove", "Remove a container.").Action(cmd.run)
	remove.Arg("key", "Key of the container").Required().StringVar(&cmd.key)
	remove.Flag("cascade", "Also remove the container's segments and results").BoolVar(&cmd.cascade)
}

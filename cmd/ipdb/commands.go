package main

import (
	"bytes"
	"fmt"
	"net/netip"
	"path/filepath"
	"sort"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	ipdb "github.com/ExodusVPN/ip-db"
	"github.com/ExodusVPN/ip-db/iprange"
	"github.com/ExodusVPN/ip-db/rirstat"
)

func dataFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "data",
		Usage:   "directory holding the delegation files",
		Value:   value,
		EnvVars: []string{"IPDB_DATA_DIR"},
	}
}

// loadTable parses the delegation files under dir and builds a table.
func loadTable(ctx *cli.Context, afs afero.Fs, dir string) (*ipdb.Table, error) {
	set, err := rirstat.Load(ctx.Context, afs, dir, nil)
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, errors.Errorf("no delegation records under %s", dir)
	}
	return ipdb.Build(set.Sorted())
}

func lookupCommand(afs afero.Fs) *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "Print the allocation containing each address",
		ArgsUsage: "IP...",
		Flags:     []cli.Flag{dataFlag("")},
		Action: func(ctx *cli.Context) error {
			if ctx.Args().Len() == 0 {
				return cli.Exit("lookup: no address given", 2)
			}

			tbl := ipdb.Default()
			if dir := ctx.String("data"); dir != "" {
				var err error
				if tbl, err = loadTable(ctx, afs, dir); err != nil {
					return err
				}
			}

			missing := 0
			for _, arg := range ctx.Args().Slice() {
				addr, err := netip.ParseAddr(arg)
				if err != nil {
					return cli.Exit(fmt.Sprintf("lookup: can't parse ip %q", arg), 2)
				}
				res, ok := tbl.Lookup(addr)
				if !ok {
					missing++
					log.WithField("addr", addr).Debug("lookup: not found")
					continue
				}
				fmt.Fprintln(ctx.App.Writer, addr, res)
			}
			if missing > 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func cidrsCommand() *cli.Command {
	return &cli.Command{
		Name:      "cidrs",
		Usage:     "Print the shortest list of CIDR blocks covering an IPv4 range",
		ArgsUsage: "FIRST LAST",
		Action: func(ctx *cli.Context) error {
			if ctx.Args().Len() != 2 {
				return cli.Exit("cidrs: need the first and last address", 2)
			}
			first, err := iprange.ParseAddr4(ctx.Args().Get(0))
			if err != nil {
				return cli.Exit(err, 2)
			}
			last, err := iprange.ParseAddr4(ctx.Args().Get(1))
			if err != nil {
				return cli.Exit(err, 2)
			}
			r, err := iprange.New4(first, last)
			if err != nil {
				return cli.Exit(err, 2)
			}
			for b := range r.CIDRs() {
				fmt.Fprintln(ctx.App.Writer, b)
			}
			return nil
		},
	}
}

type parseKey struct {
	source rirstat.Registry
	family rirstat.Family
}

func parseCommand(afs afero.Fs) *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Parse the delegation files and print record counts",
		Flags: []cli.Flag{
			dataFlag("data"),
			&cli.BoolFlag{
				Name:  "dump",
				Usage: "print every record",
			},
		},
		Action: func(ctx *cli.Context) error {
			set, err := rirstat.Load(ctx.Context, afs, ctx.String("data"), nil)
			if err != nil {
				return err
			}

			counts := make(map[parseKey]int)
			for _, rec := range set.Sorted() {
				counts[parseKey{rec.Source, rec.Block.Family()}]++
				if ctx.Bool("dump") {
					fmt.Fprintf(ctx.App.Writer, "%s\n%# v\n", rec, pretty.Formatter(rec))
					if rec.Block.Is4() {
						for _, p := range rec.Block.Prefixes() {
							fmt.Fprintf(ctx.App.Writer, "\t%s\n", p)
						}
					}
				}
			}

			keys := make([]parseKey, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				if keys[i].source != keys[j].source {
					return keys[i].source < keys[j].source
				}
				return keys[i].family < keys[j].family
			})
			for _, k := range keys {
				fmt.Fprintf(ctx.App.Writer, "%s %s %d\n", k.source, k.family, counts[k])
			}
			fmt.Fprintf(ctx.App.Writer, "total %d\n", set.Len())
			return nil
		},
	}
}

func sourcesCommand(afs afero.Fs) *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "Print where each delegation file is published",
		Flags: []cli.Flag{
			dataFlag("data"),
			&cli.BoolFlag{
				Name:  "missing",
				Usage: "only list files absent from the data directory",
			},
		},
		Action: func(ctx *cli.Context) error {
			for _, s := range rirstat.Sources {
				if ctx.Bool("missing") {
					ok, err := afero.Exists(afs, filepath.Join(ctx.String("data"), s.Name))
					if err != nil {
						return errors.Wrapf(err, "stat %s", s.Name)
					}
					if ok {
						continue
					}
				}
				fmt.Fprintf(ctx.App.Writer, "%s %s\n", s.Name, s.URL)
			}
			return nil
		},
	}
}

func genCommand(afs afero.Fs) *cli.Command {
	return &cli.Command{
		Name:  "gen",
		Usage: "Build the lookup table and write it as Go source",
		Flags: []cli.Flag{
			dataFlag("data"),
			&cli.StringFlag{
				Name:  "out",
				Usage: "output file",
				Value: "db.go",
			},
			&cli.StringFlag{
				Name:  "package",
				Usage: "package name of the generated file",
				Value: "ipdb",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "merge adjacent entries of the same country",
			},
		},
		Action: func(ctx *cli.Context) error {
			tbl, err := loadTable(ctx, afs, ctx.String("data"))
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{"ipv4": tbl.Len4(), "ipv6": tbl.Len6()}).Info("gen: table built")
			if ctx.Bool("compact") {
				tbl = tbl.Compact()
				log.WithFields(log.Fields{"ipv4": tbl.Len4(), "ipv6": tbl.Len6()}).Info("gen: compacted")
			}

			var buf bytes.Buffer
			if err := tbl.WriteGo(&buf, ctx.String("package")); err != nil {
				return err
			}
			out := ctx.String("out")
			if err := afero.WriteFile(afs, out, buf.Bytes(), 0o644); err != nil {
				return errors.Wrapf(err, "write %s", out)
			}
			log.WithField("file", out).Info("gen: wrote table")
			return nil
		},
	}
}

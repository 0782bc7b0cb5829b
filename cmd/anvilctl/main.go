// Command anvilctl is the command-line front end over the world scanning, NBT reading, and
// backup packages in this module.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/cobaltcrest/anvilctl/internal/anvil"
	"github.com/cobaltcrest/anvilctl/internal/archive"
	"github.com/cobaltcrest/anvilctl/internal/config"
	"github.com/cobaltcrest/anvilctl/internal/nbt"
	"github.com/cobaltcrest/anvilctl/internal/watch"
	"github.com/cobaltcrest/anvilctl/internal/worldindex"
	"github.com/cobaltcrest/anvilctl/internal/worldscan"
	"github.com/cobaltcrest/anvilctl/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		err = runScan(os.Args[2:])
	case "cat":
		err = runCat(os.Args[2:])
	case "backup":
		err = runBackup(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "anvilctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: anvilctl <scan|cat|backup|watch> [arguments]")
	fmt.Fprintln(os.Stderr, "  scan <worlds-root>")
	fmt.Fprintln(os.Stderr, "  cat <region-file> <x> <z> [--find-compound name] [--find-list name]")
	fmt.Fprintln(os.Stderr, "  backup <world-dir> <archive-path>")
	fmt.Fprintln(os.Stderr, "  watch <config-dir>")
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("scan requires exactly one argument: <worlds-root>")
	}
	root := fs.Arg(0)

	log := logger.New()
	scanner := worldscan.New(log, worldscan.NewHeaderCache(5*time.Minute))

	summaries, err := scanner.Scan(root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}

	for _, w := range summaries {
		fmt.Printf("%s (%s)\n", w.Name, w.Path)
		fmt.Printf("  %-12s %8s %8s %14s\n", "region", "rx", "rz", "present chunks")
		for _, r := range w.Regions {
			fmt.Printf("  %-12s %8d %8d %14d\n", filepath.Base(r.Path), r.RX, r.RZ, r.PresentChunks)
		}
		for _, e := range w.Errors {
			fmt.Printf("  error: %s\n", e)
		}
	}
	return nil
}

func runCat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	findCompound := fs.String("find-compound", "", "stop the trace at the named compound and print only that subtree's entry")
	findList := fs.String("find-list", "", "stop the trace at the named list and print its declared element count")
	fs.Parse(args)

	if fs.NArg() != 3 {
		return fmt.Errorf("cat requires exactly three arguments: <region-file> <x> <z>")
	}
	regionPath := fs.Arg(0)
	x, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("invalid x: %w", err)
	}
	z, err := strconv.Atoi(fs.Arg(2))
	if err != nil {
		return fmt.Errorf("invalid z: %w", err)
	}

	f, err := os.Open(regionPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", regionPath, err)
	}
	defer f.Close()

	reg, err := anvil.Open(f)
	if err != nil {
		return fmt.Errorf("reading region header: %w", err)
	}
	for _, w := range reg.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	p, err := reg.ChunkParser(x, z)
	if err != nil {
		return fmt.Errorf("loading chunk (%d, %d): %w", x, z, err)
	}

	switch {
	case *findCompound != "":
		name := *findCompound
		if err := nbt.FindCompound(p, &name); err != nil {
			return fmt.Errorf("find-compound %q: %w", name, err)
		}
		fmt.Printf("found compound %q\n", name)
	case *findList != "":
		name := *findList
		count, err := nbt.FindList(p, &name)
		if err != nil {
			return fmt.Errorf("find-list %q: %w", name, err)
		}
		fmt.Printf("found list %q with %d elements\n", name, count)
	default:
		return dumpTrace(p)
	}
	return nil
}

// dumpTrace prints the parser's full pre-order value trace, indented by nesting depth.
func dumpTrace(p *nbt.Parser) error {
	for {
		v, err := p.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		indent := ""
		for i := 0; i < p.Depth(); i++ {
			indent += "  "
		}
		name := "-"
		if v.Name != nil {
			name = *v.Name
		}
		fmt.Printf("%s%s %s = %s\n", indent, v.Kind, name, formatValue(v))
	}
}

func formatValue(v nbt.Value) string {
	switch v.Kind {
	case nbt.KindByte:
		return strconv.Itoa(int(v.Byte))
	case nbt.KindShort:
		return strconv.Itoa(int(v.Short))
	case nbt.KindInt:
		return strconv.Itoa(int(v.Int))
	case nbt.KindLong:
		return strconv.FormatInt(v.Long, 10)
	case nbt.KindFloat:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case nbt.KindDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case nbt.KindString:
		return v.Str
	case nbt.KindByteArray:
		return fmt.Sprintf("<%d bytes>", len(v.ByteArray))
	case nbt.KindIntArray:
		return fmt.Sprintf("<%d ints>", len(v.IntArray))
	case nbt.KindLongArray:
		return fmt.Sprintf("<%d longs>", len(v.LongArray))
	case nbt.KindList:
		return fmt.Sprintf("%d x %s", v.ListCount, v.ListElem)
	default:
		return ""
	}
}

func runBackup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("backup requires exactly two arguments: <world-dir> <archive-path>")
	}
	ctx := context.Background()
	return archive.Backup(ctx, fs.Arg(0), fs.Arg(1))
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("watch requires exactly one argument: <config-dir>")
	}

	cfg, err := config.Load(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.NewWithConfig(&logger.Config{
		Enabled:    cfg.Logging.Enabled,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	store, err := worldindex.Open(cfg.Index.DBPath, worldindex.DBConfig{
		MaxOpenConns:    cfg.Index.MaxConnections,
		MaxIdleConns:    cfg.Index.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Index.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("opening index store: %w", err)
	}
	defer store.Close()

	scanner := worldscan.New(log, worldscan.NewHeaderCache(time.Duration(cfg.Scan.HeaderTTL)*time.Second))

	spec := fmt.Sprintf("*/%d * * * *", max1(cfg.Scan.RescanSeconds/60))
	scheduler, err := watch.New(store, scanner, log, []string{cfg.Worlds.DataDir}, spec)
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	return scheduler.Stop()
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}


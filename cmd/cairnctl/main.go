// Command cairnctl exercises the buffer pool and B+ tree index end to end:
// it opens (or creates) a database file, builds an index, inserts a batch of
// keys, runs a handful of lookups and a range scan, deletes a few keys, and
// prints pool/page statistics in human-readable units. It carries no
// invariants of its own — see SPEC_FULL.md §12.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/cairndb/cairn/bptree"
	"github.com/cairndb/cairn/buffer"
	"github.com/cairndb/cairn/disk"
	"github.com/dustin/go-humanize"
)

func main() {
	dbFile := flag.String("db", "cairn.db", "path to the database file")
	poolSize := flag.Int("pool-size", 64, "number of frames in the buffer pool")
	replacerK := flag.Int("replacer-k", 2, "LRU-K history length")
	leafMaxSize := flag.Int("leaf-max-size", 64, "max entries per B+ tree leaf")
	internalMaxSize := flag.Int("internal-max-size", 64, "max children per B+ tree internal node")
	numKeys := flag.Int64("keys", 10_000, "number of sequential keys to insert")
	flag.Parse()

	if err := run(*dbFile, *poolSize, *replacerK, *leafMaxSize, *internalMaxSize, *numKeys); err != nil {
		log.Fatalf("cairnctl: %v", err)
	}
}

func run(dbFile string, poolSize, replacerK, leafMaxSize, internalMaxSize int, numKeys int64) error {
	fresh := false
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		fresh = true
	}

	f, err := os.OpenFile(dbFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbFile, err)
	}
	defer f.Close()

	bpm := buffer.New(poolSize, replacerK, disk.NewFileManager(f))
	bpm.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if fresh {
		if err := bptree.NewHeaderPage(bpm); err != nil {
			return fmt.Errorf("initializing header page: %w", err)
		}
		fmt.Printf("created fresh database %s\n", dbFile)
	}

	tree, err := bptree.Open[int64, string](bpm, "demo", leafMaxSize, internalMaxSize)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}

	fmt.Printf("inserting %s keys into index %q...\n", humanize.Comma(numKeys), tree.Name())
	inserted := 0
	for i := int64(0); i < numKeys; i++ {
		ok, err := tree.Insert(i, fmt.Sprintf("value-%d", i))
		if err != nil {
			return fmt.Errorf("inserting key %d: %w", i, err)
		}
		if ok {
			inserted++
		}
	}
	fmt.Printf("inserted %s new entries (root page %d)\n", humanize.Comma(int64(inserted)), tree.RootPageID())

	if v, ok := tree.Get(numKeys / 2); ok {
		fmt.Printf("lookup %d -> %q\n", numKeys/2, v)
	}

	lo, hi := numKeys/2, numKeys/2+9
	keys, _, err := tree.GetKeyRange(lo, hi)
	if err != nil {
		return fmt.Errorf("scanning range [%d, %d]: %w", lo, hi, err)
	}
	fmt.Printf("range [%d, %d] -> %d entries\n", lo, hi, len(keys))

	removed := 0
	for i := int64(0); i < numKeys; i += 7 {
		ok, err := tree.Remove(i)
		if err != nil {
			return fmt.Errorf("removing key %d: %w", i, err)
		}
		if ok {
			removed++
		}
	}
	fmt.Printf("removed %s entries (root page now %d)\n", humanize.Comma(int64(removed)), tree.RootPageID())

	bpm.FlushAllPages()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("statting %s: %w", dbFile, err)
	}
	fmt.Printf("flushed pool (%d frames) to disk, file size %s\n", bpm.PoolSize(), humanize.Bytes(uint64(info.Size())))
	return nil
}

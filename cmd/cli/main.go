package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"slabindex/pkg/common"
	"slabindex/pkg/config"
	"slabindex/pkg/item"
	"slabindex/pkg/kv"
	"slabindex/pkg/sql"
)

const Prompt = "slabindex> "

func main() {
	configPath := flag.String("config", "", "Path to slabindex.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		return
	}

	store, err := kv.Open(cfg)
	if err != nil {
		fmt.Printf("Open failed: %v\n", err)
		return
	}
	defer store.Close()

	fmt.Printf("slabindex CLI (workers=%d, data=%s)\n", cfg.Index.Workers, cfg.Storage.Path)
	fmt.Println("Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "put", "set":
			handlePut(store, parts)
		case "get":
			handleGet(store, parts)
		case "del", "rm":
			handleDel(store, parts)
		case "scan":
			handleScan(store, cfg, parts)
		case "select":
			handleSelect(store, cfg, line)
		case "stats":
			handleStats(store)
		case "help":
			printHelp()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("Unknown command: '%s'. Type 'help'.\n", cmd)
		}
	}
}

func handlePut(store *kv.Store, parts []string) {
	if len(parts) < 3 {
		fmt.Println("Usage: put <key> <value>")
		return
	}

	value := strings.Join(parts[2:], " ")

	start := time.Now()
	loc, err := store.Put([]byte(parts[1]), []byte(value))
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("OK %s (%v)\n", loc, duration)
	}
}

func handleGet(store *kv.Store, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: get <key>")
		return
	}

	start := time.Now()
	rec, err := store.Get([]byte(parts[1]))
	duration := time.Since(start)

	if errors.Is(err, kv.ErrNotFound) {
		fmt.Printf("(nil) (%v)\n", duration)
	} else if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("\"%s\" @ %s (%v)\n", string(rec.Value), rec.Loc, duration)
	}
}

func handleDel(store *kv.Store, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: del <key>")
		return
	}

	start := time.Now()
	err := store.Delete([]byte(parts[1]))
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("Deleted (%v)\n", duration)
	}
}

func handleScan(store *kv.Store, cfg *config.Config, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: scan <start_sort_key> [limit]")
		return
	}

	from, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		fmt.Println("Error: start key must be an unsigned integer")
		return
	}
	limit := cfg.Index.ScanLimit
	if len(parts) > 2 {
		limit, err = strconv.Atoi(parts[2])
		if err != nil || limit < 0 {
			fmt.Println("Error: limit must be a non-negative integer")
			return
		}
	}

	runScan(store, common.SortKey(from), limit, nil)
}

func handleSelect(store *kv.Store, cfg *config.Config, line string) {
	stmt, err := sql.Parse(line)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	runScan(store, stmt.From(), stmt.Bound(cfg.Index.ScanLimit, cfg.Index.Workers), stmt)
}

func runScan(store *kv.Store, from common.SortKey, limit int, stmt *sql.ScanStmt) {
	fmt.Printf("Scanning from %d (limit %d)...\n", from, limit)
	start := time.Now()
	records, err := store.Scan(from, limit)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if stmt != nil {
		filtered := records[:0]
		for _, rec := range records {
			if stmt.Match(sortKeyOf(rec)) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	fmt.Printf("Found %d records (%v):\n", len(records), duration)
	count := 0
	for _, rec := range records {
		if count >= 20 {
			fmt.Printf("... and %d more\n", len(records)-20)
			break
		}
		fmt.Printf("  [%q] -> %s @ %s\n", rec.Key, string(rec.Value), rec.Loc)
		count++
	}
}

func sortKeyOf(rec kv.Record) common.SortKey {
	k, err := item.SortKey(item.Encode(rec.Key, nil))
	if err != nil {
		return 0
	}
	return k
}

func handleStats(store *kv.Store) {
	st := store.Stats()
	keys := make([]string, 0, len(st))
	for k := range st {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := st[k].(type) {
		case uint64:
			fmt.Printf("  %-18s %s\n", k, humanize.Comma(int64(v)))
		case int:
			fmt.Printf("  %-18s %s\n", k, humanize.Comma(int64(v)))
		case float64:
			fmt.Printf("  %-18s %.3f\n", k, v)
		default:
			fmt.Printf("  %-18s %v\n", k, v)
		}
	}
}

func printHelp() {
	fmt.Println(`
Commands:
  put <key> <value>                  Insert/Update record
  get <key>                          Retrieve record
  del <key>                          Delete record
  scan <sort_key> [limit]            Ordered scan from an 8-byte key prefix
  SELECT * FROM locations [WHERE key >= <n>] [LIMIT <n>]
  stats                              Index counters
  exit                               Exit CLI
	`)
}

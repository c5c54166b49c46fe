package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"strings"

	_ "modernc.org/sqlite"
)

// verify_schema checks that a clicker database has the journal and position
// tables with the expected columns.
//
// Usage:
//   go run ./scripts/verify_schema -db ./data/clicker.db

func main() {
	dbPath := flag.String("db", "./data/clicker.db", "sqlite file")
	flag.Parse()
	fmt.Printf("Verifying database at: %s\n", *dbPath)

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	checks := map[string][]string{
		"signal_journal": {"id", "source", "signal", "price", "previous", "current", "status", "error", "steps", "created_at"},
		"position_state": {"id", "state"},
	}
	ok := true
	for table, cols := range checks {
		fmt.Printf("\nVerifying %s table...\n", table)
		var schema string
		if err := db.QueryRow("SELECT sql FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&schema); err != nil {
			fmt.Printf("❌ %s table MISSING (%v)\n", table, err)
			ok = false
			continue
		}
		for _, c := range cols {
			if strings.Contains(schema, c) {
				fmt.Printf("✓ %s column exists\n", c)
			} else {
				fmt.Printf("❌ %s column MISSING\n", c)
				ok = false
			}
		}
	}

	var state string
	if err := db.QueryRow("SELECT state FROM position_state WHERE id = 1").Scan(&state); err == nil {
		fmt.Printf("\nStored position: %s\n", state)
	}
	if !ok {
		log.Fatal("schema check failed")
	}
}

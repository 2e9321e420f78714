// Command zincfetch authenticates against a Grid Language server and
// evaluates one expression, printing the resulting grid.
//
// Flag shape grounded on the teacher's cmd/server/main.go
// (flag.String/flag.Bool package vars, flag.Parse in main).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/skygrid/zinc"
)

var (
	flagBaseURL  = flag.String("base-url", "", "base URL of the Grid Language server (required)")
	flagProject  = flag.String("project", "default", "project name")
	flagUsername = flag.String("username", "", "username to authenticate as (required)")
	flagPassword = flag.String("password", "", "password to authenticate with")
	flagExpr     = flag.String("expr", "readAll(point)", "expression to evaluate")
	flagTimeout  = flag.Duration("timeout", 30*time.Second, "per-request timeout")
)

func main() {
	flag.Parse()

	if *flagBaseURL == "" || *flagUsername == "" {
		fmt.Fprintln(os.Stderr, "zincfetch: -base-url and -username are required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := zinc.DefaultConfig()
	cfg.BaseURL = *flagBaseURL
	cfg.Project = *flagProject
	cfg.Username = *flagUsername
	cfg.Password = *flagPassword
	cfg.RequestTimeout = *flagTimeout

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	client, err := zinc.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zincfetch: authentication failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	grid, err := client.Eval(ctx, *flagExpr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zincfetch: eval failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(grid.String())
	for _, row := range grid.Rows {
		for i, col := range grid.Cols {
			fmt.Printf("  %s=%v", col.Name, row[i])
		}
		fmt.Println()
	}
}

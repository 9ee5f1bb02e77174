// Command briar is the BriarSQL command-line tool. It executes SQL
// against a local SQLite database or a remote SQL server, bulk-loads and
// dumps data, and serves a database over the remote SQL protocol.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/dump"
	"github.com/FocuswithJustin/BriarSQL/core/engine"
	"github.com/FocuswithJustin/BriarSQL/core/ingest"
	"github.com/FocuswithJustin/BriarSQL/core/remote"
	"github.com/FocuswithJustin/BriarSQL/core/sqlite"
	"github.com/FocuswithJustin/BriarSQL/core/sqlparam"
	"github.com/FocuswithJustin/BriarSQL/core/value"
	"github.com/FocuswithJustin/BriarSQL/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface for briar.
var CLI struct {
	// Global flags
	DB        string `name:"db" env:"BRIAR_DB" default:":memory:" help:"SQLite database path (:memory: for a throwaway database)"`
	LogLevel  string `name:"log-level" env:"BRIAR_LOG_LEVEL" default:"warn" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" env:"BRIAR_LOG_FORMAT" default:"text" enum:"text,json" help:"Log output format"`
	Verbose   bool   `short:"v" help:"Shortcut for --log-level=debug"`

	Exec    ExecCmd    `cmd:"" help:"Execute a statement and print the affected row count"`
	Query   QueryCmd   `cmd:"" help:"Execute a query and print its rows"`
	Load    LoadCmd    `cmd:"" help:"Bulk-load CSV, XML, or JSONL into a table"`
	Dump    DumpCmd    `cmd:"" help:"Dump a query result set to JSONL or CSV"`
	Serve   ServeCmd   `cmd:"" help:"Serve the database over the remote SQL protocol"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// openEngine opens the execution engine: the remote client when connect
// is set, the local SQLite engine otherwise.
func openEngine(connect, token string) (engine.Engine, error) {
	if connect != "" {
		host, portStr, err := net.SplitHostPort(connect)
		if err != nil {
			return nil, fmt.Errorf("bad --connect address %q: %w", connect, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("bad --connect port %q: %w", portStr, err)
		}
		var opts []remote.ClientOption
		if token != "" {
			opts = append(opts, remote.WithBearerToken(token))
		}
		return remote.Connect(remote.NewClientParams(host, port), opts...)
	}
	db, err := sqlite.Open(CLI.DB)
	if err != nil {
		return nil, err
	}
	return engine.NewLocal(db)
}

// remoteFlags are shared by the commands that can run against a remote
// server.
type remoteFlags struct {
	Connect string `name:"connect" placeholder:"HOST:PORT" env:"BRIAR_CONNECT" help:"Run against a remote SQL server instead of --db"`
	Token   string `name:"token" env:"BRIAR_TOKEN" help:"Bearer token for an authenticated remote server"`
}

// ExecCmd executes one statement.
type ExecCmd struct {
	remoteFlags
	SQL    string   `arg:"" help:"SQL statement to execute"`
	Params []string `name:"param" short:"p" help:"Typed parameter literals, e.g. i64(42), str(hello), null"`
}

func (c *ExecCmd) Run() error {
	eng, err := openEngine(c.Connect, c.Token)
	if err != nil {
		return err
	}
	defer eng.Close()

	a := arena.New()
	defer a.Destroy()
	binds, err := sqlparam.ParseAll(a, c.Params)
	if err != nil {
		return err
	}
	n, err := eng.ExecuteStatement(c.SQL, binds)
	if err != nil {
		return err
	}
	fmt.Printf("%d row(s) affected\n", n)
	return nil
}

// QueryCmd executes one query and prints its rows.
type QueryCmd struct {
	remoteFlags
	SQL    string   `arg:"" help:"SQL query to execute"`
	Params []string `name:"param" short:"p" help:"Typed parameter literals"`
	Output string   `name:"output" short:"o" default:"table" enum:"table,jsonl" help:"Output shape"`
}

func (c *QueryCmd) Run() error {
	eng, err := openEngine(c.Connect, c.Token)
	if err != nil {
		return err
	}
	defer eng.Close()

	a := arena.New()
	defer a.Destroy()
	binds, err := sqlparam.ParseAll(a, c.Params)
	if err != nil {
		return err
	}
	ds, err := eng.ExecuteQuery(c.SQL, binds)
	if err != nil {
		return err
	}
	defer ds.Release()

	if c.Output == "jsonl" {
		w, err := dump.NewWriter(os.Stdout, dump.FormatJSONL)
		if err != nil {
			return err
		}
		_, err = w.Dump(ds)
		return err
	}
	return printTable(os.Stdout, ds)
}

// printTable renders a result set with tab-aligned columns.
func printTable(out *os.File, ds engine.DataSource) error {
	cols := ds.Columns()
	cur, err := ds.Cursor()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))

	rows := 0
	fields := make([]string, len(cols))
	for {
		ok, err := cur.Advance()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		rec, err := cur.Record()
		if err != nil {
			return err
		}
		for i := range cols {
			ref, err := rec.GetColumn(i)
			if err != nil {
				return err
			}
			fields[i] = cellText(ref.Value())
		}
		fmt.Fprintln(tw, strings.Join(fields, "\t"))
		rows++
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "(%d row(s))\n", rows)
	return nil
}

// cellText renders one cell for table output.
func cellText(v *value.Value) string {
	native, err := v.Native()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	switch x := native.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(time.RFC3339)
	case []byte:
		return fmt.Sprintf("x'%x'", x)
	default:
		return fmt.Sprint(x)
	}
}

// LoadCmd bulk-loads a file into a table.
type LoadCmd struct {
	Table    string   `arg:"" help:"Target table"`
	Path     string   `arg:"" type:"existingfile" help:"Input file (.csv, .xml, .jsonl)"`
	Format   string   `name:"format" enum:"auto,csv,xml,jsonl" default:"auto" help:"Input format (default: by file extension)"`
	XPath    string   `name:"xpath" default:"//row" help:"Row-node selector for XML input"`
	NoHeader bool     `name:"no-header" help:"Treat the first CSV row as data"`
	Columns  []string `name:"columns" help:"Target column names, overriding any header row"`
}

func (c *LoadCmd) Run() error {
	eng, err := openEngine("", "")
	if err != nil {
		return err
	}
	defer eng.Close()

	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	format := c.Format
	if format == "auto" {
		switch strings.ToLower(filepath.Ext(c.Path)) {
		case ".xml":
			format = "xml"
		case ".jsonl", ".json", ".ndjson":
			format = "jsonl"
		default:
			format = "csv"
		}
	}

	var n int64
	switch format {
	case "csv":
		var opts []ingest.Option
		if c.NoHeader {
			opts = append(opts, ingest.WithoutHeader())
		}
		if len(c.Columns) > 0 {
			opts = append(opts, ingest.WithColumns(c.Columns...))
		}
		n, err = ingest.LoadCSV(eng, c.Table, f, opts...)
	case "xml":
		n, err = ingest.LoadXML(eng, c.Table, f, c.XPath)
	case "jsonl":
		n, err = ingest.LoadJSONL(eng, c.Table, f)
	}
	if err != nil {
		return err
	}
	fmt.Printf("loaded %d row(s) into %s\n", n, c.Table)
	return nil
}

// DumpCmd dumps a query result set to a file or stdout.
type DumpCmd struct {
	remoteFlags
	SQL    string   `arg:"" help:"SQL query to dump"`
	Params []string `name:"param" short:"p" help:"Typed parameter literals"`
	Output string   `name:"output" short:"o" help:"Output path (default: stdout)"`
	Format string   `name:"format" enum:"jsonl,csv" default:"jsonl" help:"Output format"`
	XZ     bool     `name:"xz" help:"Compress the output as an xz stream"`
}

func (c *DumpCmd) Run() error {
	eng, err := openEngine(c.Connect, c.Token)
	if err != nil {
		return err
	}
	defer eng.Close()

	a := arena.New()
	defer a.Destroy()
	binds, err := sqlparam.ParseAll(a, c.Params)
	if err != nil {
		return err
	}
	ds, err := eng.ExecuteQuery(c.SQL, binds)
	if err != nil {
		return err
	}
	defer ds.Release()

	out := os.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	format, err := dump.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	var opts []dump.Option
	if c.XZ {
		opts = append(opts, dump.WithXZ())
	}
	w, err := dump.NewWriter(out, format, opts...)
	if err != nil {
		return err
	}
	n, err := w.Dump(ds)
	if err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "dumped %d row(s)\n", n)
	return nil
}

// ServeCmd serves the database over the remote SQL protocol.
type ServeCmd struct {
	Port       int    `name:"port" env:"BRIAR_PORT" default:"5001" help:"Listen port"`
	AuthSecret string `name:"auth-secret" env:"BRIAR_AUTH_SECRET" help:"Require bearer tokens signed with this secret"`
	IssueToken string `name:"issue-token" help:"Print a token for this subject and exit (requires --auth-secret)"`
	TokenTTL   int    `name:"token-ttl" default:"24" help:"Issued token lifetime in hours"`
}

func (c *ServeCmd) Run() error {
	if c.IssueToken != "" {
		if c.AuthSecret == "" {
			return fmt.Errorf("--issue-token requires --auth-secret")
		}
		token, err := remote.IssueToken([]byte(c.AuthSecret), c.IssueToken, time.Duration(c.TokenTTL)*time.Hour)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	eng, err := openEngine("", "")
	if err != nil {
		return err
	}
	defer eng.Close()

	var opts []remote.ServerOption
	if c.AuthSecret != "" {
		opts = append(opts, remote.WithAuthSecret([]byte(c.AuthSecret)))
	}
	srv, err := remote.NewServer(eng, remote.NewServerParams(c.Port), opts...)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Printf("briar serving %s on %s\n", CLI.DB, srv.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return srv.Stop()
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Printf("briar %s\n", version)
	fmt.Printf("  sqlite driver: %s (%s, %s)\n", info.DriverName, info.DriverType, info.Package)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("briar"),
		kong.Description("BriarSQL - SQL boundary toolkit"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := logging.ParseLevel(CLI.LogLevel)
	if CLI.Verbose {
		level = logging.LevelDebug
	}
	logging.InitLogger(level, logging.ParseFormat(CLI.LogFormat))

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}

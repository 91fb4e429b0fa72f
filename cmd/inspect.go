package cmd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/repo-pilot/internal"
	"github.com/spf13/cobra"
)

var (
	inspectSampleRows int
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [database-path]",
	Short: "Inspect the SQLite cache database",
	Long: `Inspect the schema and contents of the SQLite cache database.

This command provides detailed information about:
  • Database schema (tables, columns, types)
  • Row counts and stored bytes
  • A summary of the first cached keys

Examples:
  repo-pilot inspect                              # Inspect the configured cache
  repo-pilot inspect /path/to/cache.db --sample 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := cfg.Cache.Path
		if len(args) > 0 {
			dbPath = args[0]
		}
		if dbPath == "" {
			return fmt.Errorf("no cache database configured")
		}
		return inspectDatabase(dbPath)
	},
}

func inspectDatabase(dbPath string) error {
	db, err := internal.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tables, err := getTables(db)
	if err != nil {
		return fmt.Errorf("failed to get tables: %w", err)
	}

	fmt.Printf("📋 Database: %s\n", dbPath)
	fmt.Printf("📊 Found %d table(s)\n\n", len(tables))

	for _, tableName := range tables {
		if err := inspectTable(db, tableName); err != nil {
			fmt.Printf("⚠️  Error inspecting table %s: %v\n", tableName, err)
			continue
		}
		fmt.Println()
	}

	return nil
}

func getTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func inspectTable(db *sql.DB, tableName string) error {
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📦 Table: %s\n", tableName)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	var rowCount int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", tableName)).Scan(&rowCount); err != nil {
		return fmt.Errorf("failed to get row count: %w", err)
	}
	fmt.Printf("📊 Rows: %s\n\n", humanize.Comma(int64(rowCount)))

	columns, err := getTableSchema(db, tableName)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}

	fmt.Printf("📐 Schema:\n")
	for _, col := range columns {
		pk := ""
		if col.PrimaryKey {
			pk = " [PRIMARY KEY]"
		}
		notNull := ""
		if col.NotNull {
			notNull = " NOT NULL"
		}
		fmt.Printf("  • %s: %s%s%s\n", col.Name, col.Type, notNull, pk)
	}
	fmt.Println()

	if tableName == "cacheKV" && rowCount > 0 {
		if err := showCacheKeys(db, inspectSampleRows); err != nil {
			fmt.Printf("⚠️  Error showing cache keys: %v\n", err)
		}
	}
	return nil
}

type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

func getTableSchema(db *sql.DB, tableName string) ([]ColumnInfo, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", tableName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var cid int
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			continue
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk == 1
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// showCacheKeys prints total bytes and a one-line summary of the first keys
func showCacheKeys(db *sql.DB, limit int) error {
	var total sql.NullInt64
	if err := db.QueryRow("SELECT SUM(LENGTH(value)) FROM cacheKV").Scan(&total); err != nil {
		return err
	}
	fmt.Printf("💾 Stored: %s\n\n", humanize.Bytes(uint64(total.Int64)))

	if limit <= 0 {
		return nil
	}
	pairs, err := internal.QueryCacheKV(db, "%")
	if err != nil {
		return err
	}

	fmt.Printf("📄 Keys (first %d):\n", limit)
	for i, pair := range pairs {
		if i == limit {
			fmt.Printf("  ... and %d more\n", len(pairs)-limit)
			break
		}
		fmt.Printf("  • %s (%s) %s\n", pair.Key, humanize.Bytes(uint64(len(pair.Value))), describeValue(pair))
	}
	return nil
}

// describeValue summarizes a cached corpus or history
func describeValue(pair internal.KeyValuePair) string {
	switch {
	case strings.HasPrefix(pair.Key, internal.CorpusKeyPrefix):
		var corpus internal.SourceCorpus
		if err := json.Unmarshal([]byte(pair.Value), &corpus); err != nil {
			return "unreadable corpus"
		}
		if corpus.Failed() {
			return fmt.Sprintf("failed: %s", corpus.Error)
		}
		return fmt.Sprintf("%s tokens, schema %d, pushed %s",
			humanize.Comma(int64(corpus.TokenLength)), corpus.SchemaVersion, corpus.SourceVersion)
	case strings.HasPrefix(pair.Key, internal.HistoryKeyPrefix):
		var entries []internal.Entry
		if err := json.Unmarshal([]byte(pair.Value), &entries); err != nil {
			return "unreadable history"
		}
		return fmt.Sprintf("%d entries, %d pairs", len(entries), len(internal.Pairs(entries)))
	}
	return ""
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVar(&inspectSampleRows, "sample", 5, "Number of cache keys to summarize")
}
